package gen

import (
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/grid"
	"tilecraft.ai/internal/sim/space"
)

// DefaultSurfaceRow is the last Air row of the surface chunk row.
const DefaultSurfaceRow = 7

type Tier uint8

const (
	TierSky Tier = iota
	TierSurface
	TierUnderground
)

func (t Tier) String() string {
	switch t {
	case TierSky:
		return "SKY"
	case TierSurface:
		return "SURFACE"
	default:
		return "UNDERGROUND"
	}
}

// TierAt classifies a chunk by its chunk row: 0 is the surface, rows below
// (positive y) are underground and rows above are sky.
func TierAt(chunkY int) Tier {
	switch {
	case chunkY == 0:
		return TierSurface
	case chunkY > 0:
		return TierUnderground
	default:
		return TierSky
	}
}

// Generator produces the initial tiles of a chunk. It is a pure function of
// the chunk position.
type Generator struct {
	Size       space.Dims
	SurfaceRow int
}

func (g Generator) TileAt(tier Tier, p grid.Point) catalogs.TileID {
	switch tier {
	case TierSurface:
		if p.Y > g.SurfaceRow {
			return catalogs.Dirt
		}
		return catalogs.Air
	case TierUnderground:
		return catalogs.Dirt
	default:
		return catalogs.Air
	}
}

func (g Generator) Generate(pos space.ChunkPos) *grid.Grid[catalogs.TileID] {
	tier := TierAt(pos.Y)
	return grid.NewFilled(g.Size.W, g.Size.H, func(p grid.Point) catalogs.TileID {
		return g.TileAt(tier, p)
	}, catalogs.Air)
}
