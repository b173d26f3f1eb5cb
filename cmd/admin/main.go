package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tilecraft.ai/internal/persistence/kv"
	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "state":
			stateCmd(os.Args[2:])
			return
		case "keys":
			keysCmd(os.Args[2:])
			return
		case "export":
			exportCmd(os.Args[2:])
			return
		case "import":
			importCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func fail(code int, args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(code)
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fail(1, "read:", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// storeFlags are shared by the subcommands that open a world's kv.db.
type storeFlags struct {
	dataDir *string
	worldID *string
	key     *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		worldID: fs.String("world", "world_1", "world id"),
		key:     fs.String("key", "ChunkMap", "save key"),
	}
}

func (f storeFlags) worldDir() string { return filepath.Join(*f.dataDir, "worlds", *f.worldID) }

func (f storeFlags) open() *kv.SQLite {
	db, err := kv.OpenSQLite(filepath.Join(f.worldDir(), "kv.db"))
	if err != nil {
		fail(1, "open kv:", err)
	}
	return db
}

func keysCmd(args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	sf := addStoreFlags(fs)
	_ = fs.Parse(args)

	db := sf.open()
	defer db.Close()
	if err := printKeys(context.Background(), os.Stdout, db); err != nil {
		fail(1, "keys:", err)
	}
}

func printKeys(ctx context.Context, w io.Writer, db *kv.SQLite) error {
	keys, err := db.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, _, err := db.Get(ctx, k)
		if err != nil {
			return err
		}
		n, err := db.Writes(ctx, k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\tbytes=%d\twrites=%d\n", k, len(v), n)
	}
	return nil
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sf := addStoreFlags(fs)
	out := fs.String("out", "", "output file (default: <world>/exports/<key>.snap.zst)")
	asJSON := fs.Bool("json", false, "print the header and chunk list as JSON instead of writing a file")
	_ = fs.Parse(args)

	db := sf.open()
	defer db.Close()
	snap, ok, err := snapshot.Load(context.Background(), db, *sf.key)
	if err != nil {
		fail(1, "load:", err)
	}
	if !ok {
		fail(1, "no save under key", *sf.key)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summarize(snap))
		return
	}
	path := strings.TrimSpace(*out)
	if path == "" {
		path = filepath.Join(sf.worldDir(), "exports", *sf.key+".snap.zst")
	}
	if err := snapshot.WriteFile(path, snap); err != nil {
		fail(1, "write:", err)
	}
	fmt.Printf("export ok: key=%s chunks=%d focus=(%d,%d) out=%s\n", *sf.key, len(snap.Chunks), snap.Focus[0], snap.Focus[1], path)
}

type snapshotSummary struct {
	Header     snapshot.Header `json:"header"`
	TileSize   [2]int          `json:"tile_size"`
	ChunkSize  [2]int          `json:"chunk_size"`
	SurfaceRow int             `json:"surface_row"`
	Focus      [2]int          `json:"focus"`
	Chunks     [][2]int        `json:"chunks"`
}

func summarize(snap snapshot.SnapshotV1) snapshotSummary {
	s := snapshotSummary{
		Header:     snap.Header,
		TileSize:   snap.TileSize,
		ChunkSize:  snap.ChunkSize,
		SurfaceRow: snap.SurfaceRow,
		Focus:      snap.Focus,
		Chunks:     make([][2]int, 0, len(snap.Chunks)),
	}
	for _, c := range snap.Chunks {
		s.Chunks = append(s.Chunks, [2]int{c.CX, c.CY})
	}
	sort.Slice(s.Chunks, func(i, j int) bool {
		if s.Chunks[i][1] != s.Chunks[j][1] {
			return s.Chunks[i][1] < s.Chunks[j][1]
		}
		return s.Chunks[i][0] < s.Chunks[j][0]
	})
	return s
}

// importCmd restores an exported file into the store. The server must be
// stopped, or its next save overwrites the import.
func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	sf := addStoreFlags(fs)
	in := fs.String("in", "", "snapshot file written by export (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*in) == "" {
		fail(2, "missing -in")
	}
	snap, err := snapshot.ReadFile(*in)
	if err != nil {
		fail(1, "read:", err)
	}
	db := sf.open()
	defer db.Close()
	n, err := snapshot.Save(context.Background(), db, *sf.key, snap)
	if err != nil {
		fail(1, "save:", err)
	}
	fmt.Printf("import ok: key=%s chunks=%d bytes=%d\n", *sf.key, len(snap.Chunks), n)
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	sf := addStoreFlags(fs)
	kind := fs.String("kind", "", "only events of this kind (FOCUS, SAVE, PLACE)")
	_ = fs.Parse(args)

	if err := printEvents(os.Stdout, filepath.Join(sf.worldDir(), "events"), strings.ToUpper(*kind)); err != nil {
		fail(1, "events:", err)
	}
}

func printEvents(w io.Writer, dir, kind string) error {
	files, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl.zst"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	enc := json.NewEncoder(w)
	for _, path := range files {
		events, err := persistlog.ReadEvents(path)
		if err != nil {
			return err
		}
		for _, e := range events {
			if kind != "" && e.Kind != kind {
				continue
			}
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
	}
	return nil
}
