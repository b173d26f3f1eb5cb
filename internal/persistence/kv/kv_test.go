package kv

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "ChunkMap"); ok || err != nil {
		t.Fatalf("empty store Get: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "ChunkMap", "AQID"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "ChunkMap", "BAUG"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if err := s.Set(ctx, "Other", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "ChunkMap")
	if err != nil || !ok || v != "BAUG" {
		t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || !reflect.DeepEqual(keys, []string{"ChunkMap", "Other"}) {
		t.Fatalf("Keys = %v err=%v", keys, err)
	}
	if err := s.Delete(ctx, "Other"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "Other"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exercise(t, s)
	n, err := s.Writes(context.Background(), "ChunkMap")
	if err != nil || n != 2 {
		t.Fatalf("Writes = %d err=%v", n, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, ok, err := s.Get(context.Background(), "ChunkMap")
	if err != nil || !ok || v != "BAUG" {
		t.Fatalf("after reopen Get = %q ok=%v err=%v", v, ok, err)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
