package store

import (
	"context"
	"errors"
	"testing"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/collision"
	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/grid"
	"tilecraft.ai/internal/sim/space"
)

type memKV map[string]string

func (m memKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memKV) Set(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

func TestDefaultLayout(t *testing.T) {
	m := Default()
	if m.Layout.Chunk != (space.Dims{W: 15, H: 10}) {
		t.Fatalf("chunk size = %+v", m.Layout.Chunk)
	}
	if ext := m.Layout.ChunkExtent(); ext != geom.V(240, 160) {
		t.Fatalf("chunk extent = %v", ext)
	}
}

func TestGetOrGenerateIsLazyAndStable(t *testing.T) {
	m := Default()
	pos := space.ChunkPos{X: 7, Y: 0}
	if _, ok := m.Peek(pos); ok {
		t.Fatalf("chunk should not exist before first access")
	}
	a := m.GetOrGenerate(pos)
	first := a.Tiles.Cells()
	b := m.Get(pos)
	if a != b {
		t.Fatalf("second access returned a different chunk")
	}
	for i, v := range b.Tiles.Cells() {
		if v != first[i] {
			t.Fatalf("cell %d changed between accesses", i)
		}
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestGenerationDeterministicAcrossMaps(t *testing.T) {
	pos := space.ChunkPos{X: -3, Y: 0}
	a := Default().GetOrGenerate(pos)
	b := Default().GetOrGenerate(pos)
	if a.Digest() != b.Digest() {
		t.Fatalf("same chunk generated differently")
	}
}

func TestRowTiersThroughStore(t *testing.T) {
	m := Default()
	m.Get(space.ChunkPos{X: 0, Y: 0}).ForEach(func(p grid.Point, id catalogs.TileID) {
		if (p.Y > 7) != (id == catalogs.Dirt) {
			t.Fatalf("surface %+v = %s", p, id)
		}
	})
	m.Get(space.ChunkPos{X: 0, Y: 1}).ForEach(func(p grid.Point, id catalogs.TileID) {
		if id != catalogs.Dirt {
			t.Fatalf("underground %+v = %s", p, id)
		}
	})
	m.Get(space.ChunkPos{X: 0, Y: -1}).ForEach(func(p grid.Point, id catalogs.TileID) {
		if id != catalogs.Air {
			t.Fatalf("sky %+v = %s", p, id)
		}
	})
}

func TestChunkGetOutOfRangePanics(t *testing.T) {
	ch := Default().GetOrGenerate(space.ChunkPos{})
	if got := ch.Get(grid.Point{X: 14, Y: 9}); got != catalogs.Dirt {
		t.Fatalf("last cell = %s", got)
	}
	defer func() {
		ie, ok := recover().(*grid.IndexError)
		if !ok || ie.X != 15 || ie.Y != 0 {
			t.Fatalf("expected *grid.IndexError at (15,0), got %v", ie)
		}
	}()
	ch.Get(grid.Point{X: 15, Y: 0})
}

func TestPlaceTile(t *testing.T) {
	m := Default()
	if err := m.PlaceTile(geom.R(0, 0, 10, 16), geom.V(-5, -30), catalogs.WoodLog); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	if got := m.TileAt(geom.V(-16, -32)); got != catalogs.WoodLog {
		t.Fatalf("tile = %s", got)
	}
	c, _ := m.Peek(space.ChunkPos{X: -1, Y: -1})
	if c == nil || c.Tiles.At(14, 8) != catalogs.WoodLog {
		t.Fatalf("write landed in the wrong cell")
	}
}

func TestPlaceTileOverlapRefused(t *testing.T) {
	m := Default()
	body := geom.R(100, 100, 10, 16)
	before := m.TileAt(geom.V(105, 100))
	if err := m.PlaceTile(body, geom.V(105, 100), catalogs.Dirt); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if m.TileAt(geom.V(105, 100)) != before {
		t.Fatalf("refused write changed the store")
	}
}

func TestPlaceTileEdgeTouchAllowed(t *testing.T) {
	m := Default()
	body := geom.R(0, 0, 16, 16)
	if err := m.PlaceTile(body, geom.V(16, 0), catalogs.Dirt); err != nil {
		t.Fatalf("edge touching placement refused: %v", err)
	}
	if err := m.PlaceTile(body, geom.V(3, 20), catalogs.Dirt); err != nil {
		t.Fatalf("bottom edge touching placement refused: %v", err)
	}
	if m.TileAt(geom.V(16, 0)) != catalogs.Dirt || m.TileAt(geom.V(0, 16)) != catalogs.Dirt {
		t.Fatalf("placements missing")
	}
}

func TestPlaceTileUnknown(t *testing.T) {
	m := Default()
	if err := m.PlaceTile(geom.Rect{}, geom.V(500, 500), catalogs.TileCount); !errors.Is(err, ErrUnknownTile) {
		t.Fatalf("expected ErrUnknownTile, got %v", err)
	}
}

func TestChunksAroundCoversNine(t *testing.T) {
	m := Default()
	center := space.ChunkPos{X: 4, Y: -2}
	got := m.ChunksAround(center)
	if len(got) != 9 {
		t.Fatalf("len = %d", len(got))
	}
	seen := map[space.ChunkPos]bool{}
	for _, n := range got {
		if n.DX < -1 || n.DX > 1 || n.DY < -1 || n.DY > 1 {
			t.Fatalf("offset out of range: %+v", n)
		}
		if n.Pos != center.Add(n.DX, n.DY) || n.Chunk.Pos != n.Pos {
			t.Fatalf("neighbor position mismatch: %+v", n)
		}
		if seen[n.Pos] {
			t.Fatalf("duplicate %+v", n.Pos)
		}
		seen[n.Pos] = true
	}
	if m.Len() != 9 {
		t.Fatalf("neighborhood should materialize 9 chunks, got %d", m.Len())
	}
}

func TestSetFocusNotifiesOnce(t *testing.T) {
	m := Default()
	var events [][2]space.ChunkPos
	m.OnFocus(func(from, to space.ChunkPos) {
		events = append(events, [2]space.ChunkPos{from, to})
	})
	if m.SetFocus(space.ChunkPos{}) {
		t.Fatalf("unchanged focus reported a change")
	}
	if !m.SetFocus(space.ChunkPos{X: 1}) || m.SetFocus(space.ChunkPos{X: 1}) {
		t.Fatalf("focus change detection wrong")
	}
	if len(events) != 1 || events[0][0] != (space.ChunkPos{}) || events[0][1] != (space.ChunkPos{X: 1}) {
		t.Fatalf("events = %+v", events)
	}
}

func TestCollideCorners(t *testing.T) {
	m := Default()
	if got := m.Collide(geom.R(100, 100, 10, 16)); got != collision.Empty {
		t.Fatalf("open air = %s", got)
	}
	if got := m.Collide(geom.R(100, 120, 10, 16)); got != collision.Solid {
		t.Fatalf("overlapping ground = %s", got)
	}
	// 112+16-1 = 127 is the last row of tile 7, one pixel above ground.
	if got := m.Collide(geom.R(100, 112, 10, 16)); got != collision.Empty {
		t.Fatalf("resting on ground = %s", got)
	}
}

func TestCollideSamplesInteriorOfWideRect(t *testing.T) {
	m := Default()
	if err := m.PlaceTile(geom.Rect{}, geom.V(20, 84), catalogs.Dirt); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	// Corners at x=0 and x=39 both miss tile column 1.
	if got := m.Collide(geom.R(0, 80, 40, 16)); got != collision.Solid {
		t.Fatalf("wide rect missed interior tile: %s", got)
	}
	if err := m.PlaceTile(geom.Rect{}, geom.V(20, 84), catalogs.Air); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	if err := m.PlaceTile(geom.Rect{}, geom.V(2, 20), catalogs.WoodPlanks); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	// Corners at y=0 and y=47 both miss tile row 1.
	if got := m.Collide(geom.R(0, 0, 10, 48)); got != collision.JumpThrough {
		t.Fatalf("tall rect missed interior platform: %s", got)
	}
}

func TestCollideAcrossChunkBoundary(t *testing.T) {
	m := Default()
	if err := m.PlaceTile(geom.Rect{}, geom.V(240, 50), catalogs.WoodLog); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	if got := m.Collide(geom.R(232, 40, 10, 16)); got != collision.Solid {
		t.Fatalf("rect straddling chunks = %s", got)
	}
	if m.Len() < 2 {
		t.Fatalf("query should have materialized the neighbor chunk")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memKV{}

	m := Default()
	m.Tag = 3
	m.ChunksAround(space.ChunkPos{})
	if err := m.PlaceTile(geom.Rect{}, geom.V(-100, 130), catalogs.GenericOre); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	if err := m.PlaceTile(geom.Rect{}, geom.V(50, 140), catalogs.Air); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	m.SetFocus(space.ChunkPos{X: -1, Y: 0})

	if !m.Unsaved() {
		t.Fatalf("edits should mark the map unsaved")
	}
	if _, err := m.Save(ctx, kv, "ChunkMap"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Unsaved() {
		t.Fatalf("save should clear unsaved")
	}

	got, ok, err := Load(ctx, kv, "ChunkMap")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Focus != m.Focus || got.Layout != m.Layout || got.Tag != m.Tag || got.SurfaceRow != m.SurfaceRow {
		t.Fatalf("metadata mismatch: %+v vs %+v", got, m)
	}
	if got.Len() != m.Len() {
		t.Fatalf("chunk count %d vs %d", got.Len(), m.Len())
	}
	for _, k := range m.LoadedChunkKeys() {
		a, _ := m.Peek(k)
		b, ok := got.Peek(k)
		if !ok || a.Digest() != b.Digest() {
			t.Fatalf("chunk %+v differs after load", k)
		}
	}
	if got.TileAt(geom.V(-100, 130)) != catalogs.GenericOre || got.TileAt(geom.V(50, 140)) != catalogs.Air {
		t.Fatalf("edited tiles lost")
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := memKV{}
	if _, ok, err := Load(ctx, kv, "ChunkMap"); ok || err != nil {
		t.Fatalf("missing save: ok=%v err=%v", ok, err)
	}
	kv["ChunkMap"] = "definitely not a snapshot"
	if m, ok, _ := Load(ctx, kv, "ChunkMap"); ok || m != nil {
		t.Fatalf("corrupt save should be absent")
	}
}
