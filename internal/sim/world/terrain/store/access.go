package store

import (
	"fmt"
	"sort"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/space"
)

// GetOrGenerate returns the chunk at pos, generating and storing it on first
// access. A stored chunk is never regenerated.
func (m *ChunkMap) GetOrGenerate(pos space.ChunkPos) *Chunk {
	if ch, ok := m.chunks[pos]; ok {
		return ch
	}
	ch := &Chunk{
		Pos:   pos,
		Tiles: m.generator().Generate(pos),
	}
	ch.dirty = true
	_ = ch.Digest()
	m.chunks[pos] = ch
	m.unsaved = true
	return ch
}

// Get is GetOrGenerate; reads materialize chunks too.
func (m *ChunkMap) Get(pos space.ChunkPos) *Chunk { return m.GetOrGenerate(pos) }

// Peek returns a chunk only if it has been generated.
func (m *ChunkMap) Peek(pos space.ChunkPos) (*Chunk, bool) {
	ch, ok := m.chunks[pos]
	return ch, ok
}

func (m *ChunkMap) Focused() *Chunk { return m.GetOrGenerate(m.Focus) }

// SetFocus moves the focus chunk. It returns true, and notifies the focus
// listener once, only when the focus actually changes.
func (m *ChunkMap) SetFocus(pos space.ChunkPos) bool {
	if pos == m.Focus {
		return false
	}
	from := m.Focus
	m.Focus = pos
	m.unsaved = true
	if m.onFocus != nil {
		m.onFocus(from, pos)
	}
	return true
}

func (m *ChunkMap) LoadedChunkKeys() []space.ChunkPos {
	keys := make([]space.ChunkPos, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// TileAt returns the tile covering a world point.
func (m *ChunkMap) TileAt(p geom.Vec2) catalogs.TileID {
	cp, local := m.Layout.Locate(p)
	return m.GetOrGenerate(cp).Get(local)
}

// PlaceTile overwrites the tile covering point. The write is refused with
// ErrOverlap when the tile's footprint overlaps region with positive area;
// touching edges are allowed.
func (m *ChunkMap) PlaceTile(region geom.Rect, point geom.Vec2, tile catalogs.TileID) error {
	if !tile.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTile, tile)
	}
	footprint := m.Layout.TileRect(point)
	if inter, ok := region.Intersect(footprint); ok && min(inter.W, inter.H) != 0 {
		return ErrOverlap
	}

	cp, local := m.Layout.Locate(point)
	if m.GetOrGenerate(cp).Set(local, tile) {
		m.unsaved = true
	}
	return nil
}

// Neighbor is one entry of a 3x3 neighborhood. DX and DY are in {-1,0,1}.
type Neighbor struct {
	DX, DY int
	Pos    space.ChunkPos
	Chunk  *Chunk
}

// ChunksAround returns the nine chunks centered on center in row-major
// order, generating any that are missing.
func (m *ChunkMap) ChunksAround(center space.ChunkPos) []Neighbor {
	out := make([]Neighbor, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pos := center.Add(dx, dy)
			out = append(out, Neighbor{DX: dx, DY: dy, Pos: pos, Chunk: m.GetOrGenerate(pos)})
		}
	}
	return out
}

func (m *ChunkMap) AroundFocus() []Neighbor { return m.ChunksAround(m.Focus) }
