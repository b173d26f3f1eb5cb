package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tilecraft.ai/internal/persistence/kv"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/space"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world"
)

func TestLoadChunksResumesSave(t *testing.T) {
	tune := tuning.Defaults()
	blobs := kv.NewMemory()
	logger := log.New(io.Discard, "", 0)

	fresh := loadChunks(blobs, tune, logger)
	if fresh.Len() != 0 || fresh.Layout != tune.Layout() {
		t.Fatalf("fresh map = %d chunks, layout %+v", fresh.Len(), fresh.Layout)
	}
	at := geom.V(40, 100)
	if err := fresh.PlaceTile(geom.Rect{}, at, catalogs.WoodPlanks); err != nil {
		t.Fatalf("PlaceTile: %v", err)
	}
	if _, err := fresh.Save(context.Background(), blobs, tune.SaveKey); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resumed := loadChunks(blobs, tune, logger)
	if resumed.TileAt(at) != catalogs.WoodPlanks {
		t.Fatalf("resumed map lost the placed tile")
	}
}

func TestLoadChunksDiscardsCorruptSave(t *testing.T) {
	tune := tuning.Defaults()
	blobs := kv.NewMemory()
	_ = blobs.Set(context.Background(), tune.SaveKey, "not base64!")
	var buf bytes.Buffer

	m := loadChunks(blobs, tune, log.New(&buf, "", 0))
	if m.Len() != 0 || m.Focus != (space.ChunkPos{}) {
		t.Fatalf("expected a fresh map")
	}
	if !strings.Contains(buf.String(), "discarding unreadable save") {
		t.Fatalf("corrupt save not logged: %q", buf.String())
	}
}

func TestOpenStore(t *testing.T) {
	mem, err := openStore(":memory:", t.TempDir())
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*kv.Memory); !ok {
		t.Fatalf("got %T", mem)
	}

	dir := t.TempDir()
	db, err := openStore("", dir)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer db.Close()
	if err := db.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "kv.db")); err != nil {
		t.Fatalf("kv.db not created: %v", err)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	writeMetrics(&buf, "w1", world.Metrics{Tick: 42, LoadedChunks: 9, Unsaved: true, Focus: [2]int{1, -2}})
	out := buf.String()
	for _, want := range []string{
		`tilecraft_world_tick{world="w1"} 42`,
		`tilecraft_world_loaded_chunks{world="w1"} 9`,
		`tilecraft_world_unsaved{world="w1"} 1`,
		`tilecraft_world_focus{world="w1",axis="y"} -2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
