package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"tilecraft.ai/internal/sim/collision"
)

// TileID is the only thing stored per cell; everything else about a tile is
// derived from the catalog.
type TileID uint8

const (
	Air TileID = iota
	Dirt
	WoodPlanks
	WoodLog
	GenericOre

	TileCount
)

type BreakKind uint8

const (
	BreakInstant BreakKind = iota
	BreakWithTime
	BreakIndestructible
)

// Breakable describes how a tile may be removed. Seconds is only meaningful
// for BreakWithTime. Nothing consumes the timer yet; it is catalog data.
type Breakable struct {
	Kind    BreakKind
	Seconds float64
}

type Physicality uint8

const (
	PhysSolid Physicality = iota
	PhysJumpThrough
	PhysEmpty
)

type TileDef struct {
	// Sprite is the tileset index, nil for tiles that are never drawn.
	Sprite      *uint32
	Breakable   Breakable
	Name        string
	Physicality Physicality
}

func (d TileDef) Collision() collision.Result {
	switch d.Physicality {
	case PhysSolid:
		return collision.Solid
	case PhysJumpThrough:
		return collision.JumpThrough
	default:
		return collision.Empty
	}
}

func sprite(i uint32) *uint32 { return &i }

// tiles is indexed by TileID. Its length is pinned to TileCount, so a new id
// added before TileCount without an entry here shows up as a zero TileDef and
// fails TestEveryTileDefined.
var tiles = [TileCount]TileDef{
	Air: {
		Name:        "Air",
		Breakable:   Breakable{Kind: BreakIndestructible},
		Physicality: PhysEmpty,
	},
	Dirt: {
		Sprite:      sprite(9),
		Name:        "Dirt",
		Breakable:   Breakable{Kind: BreakWithTime, Seconds: 1.0},
		Physicality: PhysSolid,
	},
	WoodPlanks: {
		Sprite:      sprite(33),
		Name:        "Wood",
		Breakable:   Breakable{Kind: BreakWithTime, Seconds: 2.0},
		Physicality: PhysJumpThrough,
	},
	WoodLog: {
		Sprite:      sprite(34),
		Name:        "Log",
		Breakable:   Breakable{Kind: BreakWithTime, Seconds: 2.0},
		Physicality: PhysSolid,
	},
	GenericOre: {
		Sprite:      sprite(41),
		Name:        "Ore",
		Breakable:   Breakable{Kind: BreakWithTime, Seconds: 3.0},
		Physicality: PhysSolid,
	},
}

// Lookup never fails. Ids outside the catalog resolve to Air.
func Lookup(id TileID) TileDef {
	if id >= TileCount {
		return tiles[Air]
	}
	return tiles[id]
}

func (id TileID) Def() TileDef { return Lookup(id) }

func (id TileID) Valid() bool { return id < TileCount }

func (id TileID) String() string { return Lookup(id).Name }

// Palette lists tile names in id order.
func Palette() []string {
	out := make([]string, 0, TileCount)
	for i := TileID(0); i < TileCount; i++ {
		out = append(out, tiles[i].Name)
	}
	return out
}

// PaletteDigest identifies the id->name mapping that stored tile ids refer to.
func PaletteDigest() string {
	palJSON, _ := json.Marshal(Palette())
	sum := sha256.Sum256(palJSON)
	return hex.EncodeToString(sum[:])
}
