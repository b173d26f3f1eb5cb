package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
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

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:     Header{Version: int(Version), Tag: 2, PaletteDigest: "abc", Chunks: 2},
		TileSize:   [2]int{16, 16},
		ChunkSize:  [2]int{15, 10},
		SurfaceRow: 7,
		Focus:      [2]int{-1, 3},
		Tag:        2,
		Chunks: []ChunkV1{
			{CX: 0, CY: 0, Tiles: []byte{0, 120, 1, 30}},
			{CX: -1, CY: 3, Tiles: []byte{1, 150}},
		},
	}
}

func equal(a, b SnapshotV1) bool {
	if a.Header != b.Header || a.TileSize != b.TileSize || a.ChunkSize != b.ChunkSize ||
		a.SurfaceRow != b.SurfaceRow || a.Focus != b.Focus || a.Tag != b.Tag || len(a.Chunks) != len(b.Chunks) {
		return false
	}
	for i := range a.Chunks {
		if a.Chunks[i].CX != b.Chunks[i].CX || a.Chunks[i].CY != b.Chunks[i].CY || string(a.Chunks[i].Tiles) != string(b.Chunks[i].Tiles) {
			return false
		}
	}
	return true
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := Encode(sample())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw[0] != Version {
		t.Fatalf("version byte = %d", raw[0])
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !equal(got, sample()) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	raw, _ := Encode(sample())
	raw[0] = 99
	if _, err := Decode(raw); !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion, got %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion for empty blob, got %v", err)
	}
}

func TestSaveLoadKV(t *testing.T) {
	ctx := context.Background()
	kv := memKV{}

	if _, ok, err := Load(ctx, kv, "ChunkMap"); ok || err != nil {
		t.Fatalf("missing key should be absent without error: ok=%v err=%v", ok, err)
	}
	n, err := Save(ctx, kv, "ChunkMap", sample())
	if err != nil || n == 0 {
		t.Fatalf("Save: n=%d err=%v", n, err)
	}
	got, ok, err := Load(ctx, kv, "ChunkMap")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if !equal(got, sample()) {
		t.Fatalf("kv round trip mismatch")
	}
}

func TestLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := memKV{"ChunkMap": "%%% not base64"}
	if _, ok, err := Load(ctx, kv, "ChunkMap"); ok || err == nil {
		t.Fatalf("corrupt value should be absent with error: ok=%v err=%v", ok, err)
	}
	kv["ChunkMap"] = "AQID"
	if _, ok, err := Load(ctx, kv, "ChunkMap"); ok || err == nil {
		t.Fatalf("garbage zstd should fail: ok=%v err=%v", ok, err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "snaps", "world.snap")
	if err := WriteFile(p, sample()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !equal(got, sample()) {
		t.Fatalf("file round trip mismatch")
	}
}
