package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Version is the leading byte of every encoded snapshot.
const Version byte = 1

var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version       int    `json:"version"`
	Tag           uint8  `json:"tag"`
	PaletteDigest string `json:"palette_digest"`
	Chunks        int    `json:"chunks"`
}

// SnapshotV1 is the full persisted state of a chunk map.
type SnapshotV1 struct {
	Header Header `json:"header"`

	TileSize   [2]int `json:"tile_size"`
	ChunkSize  [2]int `json:"chunk_size"`
	SurfaceRow int    `json:"surface_row"`
	Focus      [2]int `json:"focus"`
	Tag        uint8  `json:"tag"`

	Chunks []ChunkV1 `json:"chunks"`
}

// ChunkV1 holds one chunk's tile ids, row-major, RLE packed.
type ChunkV1 struct {
	CX    int    `json:"cx"`
	CY    int    `json:"cy"`
	Tiles []byte `json:"tiles"`
}

// Encode produces: version byte, then a zstd stream holding a JSON header
// line followed by the gob-encoded snapshot.
func Encode(snap SnapshotV1) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(Version)
	if err := write(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(b []byte) (SnapshotV1, error) {
	var snap SnapshotV1
	if len(b) == 0 {
		return snap, fmt.Errorf("%w: empty blob", ErrVersion)
	}
	if b[0] != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, b[0])
	}
	return read(bytes.NewReader(b[1:]))
}

func read(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	// The header line is for tools that only want metadata; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// EncodeString is Encode in standard base64, the form kept in blob storage.
func EncodeString(snap SnapshotV1) (string, error) {
	raw, err := Encode(snap)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeString(s string) (SnapshotV1, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return SnapshotV1{}, fmt.Errorf("base64: %w", err)
	}
	return Decode(raw)
}

// BlobStore is a string key-value store. Get reports ok=false for a missing
// key.
type BlobStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Save writes snap under key and returns the stored value size.
func Save(ctx context.Context, kv BlobStore, key string, snap SnapshotV1) (int, error) {
	s, err := EncodeString(snap)
	if err != nil {
		return 0, err
	}
	if err := kv.Set(ctx, key, s); err != nil {
		return 0, fmt.Errorf("store %q: %w", key, err)
	}
	return len(s), nil
}

// Load reads the snapshot under key. A missing key is (false, nil); an
// unreadable value is (false, err) so the caller can log it before falling
// back to a fresh world.
func Load(ctx context.Context, kv BlobStore, key string) (SnapshotV1, bool, error) {
	s, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return SnapshotV1{}, false, err
	}
	snap, err := DecodeString(s)
	if err != nil {
		return SnapshotV1{}, false, err
	}
	return snap, true, nil
}

// WriteFile exports a snapshot to disk in the binary (non-base64) form.
func WriteFile(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := Encode(snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadFile(path string) (SnapshotV1, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	return Decode(raw)
}
