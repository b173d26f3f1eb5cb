// Package space converts between the coordinate spaces of the tile world:
// world (continuous pixels), tile (integer tile indices), chunk (which chunk
// a point falls in) and screen (viewport-relative pixels).
package space

import (
	"math"

	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/grid"
)

// Dims is an integer width/height pair.
type Dims struct {
	W int
	H int
}

func (d Dims) Vec() geom.Vec2 { return geom.Vec2{X: float64(d.W), Y: float64(d.H)} }

// TilePos is a tile index in world tile space; it is unbounded and may be
// negative.
type TilePos struct {
	X int
	Y int
}

// ChunkPos identifies one chunk.
type ChunkPos struct {
	X int
	Y int
}

func (c ChunkPos) Add(dx, dy int) ChunkPos { return ChunkPos{X: c.X + dx, Y: c.Y + dy} }

// Layout fixes the tile size in pixels and the chunk size in tiles.
type Layout struct {
	Tile  Dims
	Chunk Dims
}

// ChunkExtent is the size of one chunk in world pixels.
func (l Layout) ChunkExtent() geom.Vec2 {
	return geom.Vec2{X: float64(l.Chunk.W * l.Tile.W), Y: float64(l.Chunk.H * l.Tile.H)}
}

func (l Layout) WorldToTile(p geom.Vec2) TilePos {
	return TilePos{
		X: int(math.Floor(p.X / float64(l.Tile.W))),
		Y: int(math.Floor(p.Y / float64(l.Tile.H))),
	}
}

func (l Layout) TileToWorld(t TilePos) geom.Vec2 {
	return geom.Vec2{X: float64(t.X * l.Tile.W), Y: float64(t.Y * l.Tile.H)}
}

func (l Layout) WorldToChunk(p geom.Vec2) ChunkPos {
	ext := l.ChunkExtent()
	return ChunkPos{
		X: int(math.Floor(p.X / ext.X)),
		Y: int(math.Floor(p.Y / ext.Y)),
	}
}

// ChunkOrigin is the world position of a chunk's top-left corner.
func (l Layout) ChunkOrigin(c ChunkPos) geom.Vec2 {
	ext := l.ChunkExtent()
	return geom.Vec2{X: float64(c.X) * ext.X, Y: float64(c.Y) * ext.Y}
}

// Snap rounds p down to the tile-aligned position containing it.
func (l Layout) Snap(p geom.Vec2) geom.Vec2 {
	return l.TileToWorld(l.WorldToTile(p))
}

// TileRect is the world footprint of the tile containing p.
func (l Layout) TileRect(p geom.Vec2) geom.Rect {
	return geom.RectAt(l.Snap(p), l.Tile.Vec())
}

// Locate resolves a world point to its chunk and the tile inside that chunk.
func (l Layout) Locate(p geom.Vec2) (ChunkPos, grid.Point) {
	ext := l.ChunkExtent()
	local := Wrap(p, geom.Rect{W: ext.X, H: ext.Y})
	pt := grid.Point{
		X: int(math.Floor(local.X)) / l.Tile.W,
		Y: int(math.Floor(local.Y)) / l.Tile.H,
	}
	// Tile sizes that do not divide the float extent exactly can still push
	// the last pixel past the final column.
	pt.X = min(max(pt.X, 0), l.Chunk.W-1)
	pt.Y = min(max(pt.Y, 0), l.Chunk.H-1)
	return l.WorldToChunk(p), pt
}

// Wrap maps v into [0,W)x[0,H) of r's size by Euclidean remainder, so that
// Wrap(v + (k*W, m*H)) == Wrap(v) for all integers k, m.
func Wrap(v geom.Vec2, r geom.Rect) geom.Vec2 {
	return geom.Vec2{X: remEuclid(v.X, r.W), Y: remEuclid(v.Y, r.H)}
}

func remEuclid(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += math.Abs(b)
	}
	if m >= math.Abs(b) {
		// a was a hair below a multiple of b and the addition rounded up.
		return math.Nextafter(math.Abs(b), 0)
	}
	return m
}
