package store

import (
	"crypto/sha256"
	"errors"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/grid"
	"tilecraft.ai/internal/sim/space"
	"tilecraft.ai/internal/sim/world/terrain/gen"
)

var (
	// ErrOverlap is returned by PlaceTile when the target tile would overlap
	// the protected region (typically the placing body).
	ErrOverlap     = errors.New("tile footprint overlaps region")
	ErrUnknownTile = errors.New("unknown tile id")
)

const (
	DefaultTileSize = 16
	DefaultViewW    = 240
	DefaultViewH    = 160
)

type Chunk struct {
	Pos   space.ChunkPos
	Tiles *grid.Grid[catalogs.TileID]

	dirty bool
	hash  [32]byte
}

// Get reads one cell. p must be inside the chunk; a point outside it is a
// transform bug and panics with *grid.IndexError.
func (c *Chunk) Get(p grid.Point) catalogs.TileID { return c.Tiles.At(p.X, p.Y) }

// Set writes one cell and reports whether it changed.
func (c *Chunk) Set(p grid.Point, id catalogs.TileID) bool {
	if c.Tiles.At(p.X, p.Y) == id {
		return false
	}
	c.Tiles.Set(p.X, p.Y, id)
	c.dirty = true
	return true
}

// ForEach is the read-only view renderers draw from.
func (c *Chunk) ForEach(fn func(grid.Point, catalogs.TileID)) {
	c.Tiles.ForEach(fn)
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		c.Tiles.ForEach(func(_ grid.Point, id catalogs.TileID) {
			h.Write([]byte{byte(id)})
		})
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// FocusListener is told about every change of the focus chunk.
type FocusListener func(from, to space.ChunkPos)

// ChunkMap is the world store: a sparse, lazily generated set of chunks.
// An absent chunk has not been generated yet; it is not empty.
type ChunkMap struct {
	Layout     space.Layout
	Focus      space.ChunkPos
	SurfaceRow int
	Tag        uint8

	chunks  map[space.ChunkPos]*Chunk
	unsaved bool
	onFocus FocusListener
}

func New(layout space.Layout, surfaceRow int) *ChunkMap {
	return &ChunkMap{
		Layout:     layout,
		SurfaceRow: surfaceRow,
		chunks:     map[space.ChunkPos]*Chunk{},
	}
}

// Default sizes chunks to one 240x160 screen of 16px tiles.
func Default() *ChunkMap {
	return New(space.Layout{
		Tile:  space.Dims{W: DefaultTileSize, H: DefaultTileSize},
		Chunk: space.Dims{W: DefaultViewW / DefaultTileSize, H: DefaultViewH / DefaultTileSize},
	}, gen.DefaultSurfaceRow)
}

func (m *ChunkMap) OnFocus(fn FocusListener) { m.onFocus = fn }

func (m *ChunkMap) generator() gen.Generator {
	return gen.Generator{Size: m.Layout.Chunk, SurfaceRow: m.SurfaceRow}
}

// Unsaved reports whether anything changed since the last MarkSaved.
func (m *ChunkMap) Unsaved() bool { return m.unsaved }
func (m *ChunkMap) MarkSaved() { m.unsaved = false }

func (m *ChunkMap) Len() int { return len(m.chunks) }
