package store

import (
	"context"
	"fmt"

	snapv1 "tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/encoding"
	"tilecraft.ai/internal/sim/grid"
	"tilecraft.ai/internal/sim/space"
)

// ExportSnapshot captures every generated chunk plus focus and sizes.
func (m *ChunkMap) ExportSnapshot() snapv1.SnapshotV1 {
	keys := m.LoadedChunkKeys()
	chunks := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := m.chunks[k]
		chunks = append(chunks, snapv1.ChunkV1{
			CX:    k.X,
			CY:    k.Y,
			Tiles: encoding.PackRLE(ch.Tiles.Cells()),
		})
	}
	return snapv1.SnapshotV1{
		Header: snapv1.Header{
			Version:       int(snapv1.Version),
			Tag:           m.Tag,
			PaletteDigest: catalogs.PaletteDigest(),
			Chunks:        len(chunks),
		},
		TileSize:   [2]int{m.Layout.Tile.W, m.Layout.Tile.H},
		ChunkSize:  [2]int{m.Layout.Chunk.W, m.Layout.Chunk.H},
		SurfaceRow: m.SurfaceRow,
		Focus:      [2]int{m.Focus.X, m.Focus.Y},
		Tag:        m.Tag,
		Chunks:     chunks,
	}
}

// ImportSnapshot rebuilds a chunk map from a snapshot.
func ImportSnapshot(snap snapv1.SnapshotV1) (*ChunkMap, error) {
	layout := space.Layout{
		Tile:  space.Dims{W: snap.TileSize[0], H: snap.TileSize[1]},
		Chunk: space.Dims{W: snap.ChunkSize[0], H: snap.ChunkSize[1]},
	}
	if layout.Tile.W <= 0 || layout.Tile.H <= 0 || layout.Chunk.W <= 0 || layout.Chunk.H <= 0 {
		return nil, fmt.Errorf("snapshot sizes invalid: tile %v chunk %v", snap.TileSize, snap.ChunkSize)
	}
	m := New(layout, snap.SurfaceRow)
	m.Focus = space.ChunkPos{X: snap.Focus[0], Y: snap.Focus[1]}
	m.Tag = snap.Tag

	cells := layout.Chunk.W * layout.Chunk.H
	for _, c := range snap.Chunks {
		pos := space.ChunkPos{X: c.CX, Y: c.CY}
		if _, dup := m.chunks[pos]; dup {
			return nil, fmt.Errorf("snapshot chunk %v duplicated", pos)
		}
		ids, err := encoding.UnpackRLE[catalogs.TileID](c.Tiles, cells)
		if err != nil {
			return nil, fmt.Errorf("snapshot chunk %v: %w", pos, err)
		}
		for i, id := range ids {
			if !id.Valid() {
				return nil, fmt.Errorf("snapshot chunk %v: unknown tile %d at %d", pos, id, i)
			}
		}
		tiles, err := grid.FromCells(layout.Chunk.W, layout.Chunk.H, ids)
		if err != nil {
			return nil, fmt.Errorf("snapshot chunk %v: %w", pos, err)
		}
		ch := &Chunk{Pos: pos, Tiles: tiles, dirty: true}
		_ = ch.Digest()
		m.chunks[pos] = ch
	}
	return m, nil
}

// Save persists the whole map under key and returns the stored size.
func (m *ChunkMap) Save(ctx context.Context, kv snapv1.BlobStore, key string) (int, error) {
	n, err := snapv1.Save(ctx, kv, key, m.ExportSnapshot())
	if err != nil {
		return 0, err
	}
	m.unsaved = false
	return n, nil
}

// Load restores a map saved under key. ok is false when there is no save or
// it cannot be decoded; err carries the reason in the latter case so the
// caller can log it before starting from Default.
func Load(ctx context.Context, kv snapv1.BlobStore, key string) (m *ChunkMap, ok bool, err error) {
	snap, ok, err := snapv1.Load(ctx, kv, key)
	if err != nil || !ok {
		return nil, false, err
	}
	m, err = ImportSnapshot(snap)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}
