package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tilecraft.ai/internal/persistence/kv"
	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world"
	"tilecraft.ai/internal/sim/world/terrain/store"
	"tilecraft.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dbPath     = flag.String("db", "", "sqlite key-value store (default: <data>/worlds/<id>/kv.db; \":memory:\" keeps nothing)")
		noEvents   = flag.Bool("disable_events", false, "disable the JSONL event log")
		verbose    = flag.Bool("verbose", false, "log refused placements")
	)
	flag.Parse()

	logger := newLogger(os.Stdout, "server")

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	blobs, err := openStore(*dbPath, worldDir)
	if err != nil {
		logger.Fatalf("open kv: %v", err)
	}
	defer blobs.Close()

	chunks := loadChunks(blobs, tune, logger)

	w, err := world.New(world.Config{
		ID:         *worldID,
		TickRateHz: tune.TickRateHz,
		SaveEvery:  tune.SaveEverySeconds,
		SaveKey:    tune.SaveKey,
		Player:     tune.PlayerParams(),
		Verbose:    *verbose,
	}, chunks, blobs, newLogger(os.Stdout, "world"))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !*noEvents {
		events := persistlog.NewEventLogger(worldDir)
		defer events.Close()
		w.SetEventLogger(events)
		go func() {
			t := time.NewTicker(10 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := events.Flush(); err != nil {
						logger.Printf("event log flush: %v", err)
					}
				}
			}
		}()
	}

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *worldID, w.Metrics())
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string        `json:"world_id"`
			Tick    uint64        `json:"tick"`
			Tuning  tuning.Tuning `json:"tuning"`
			Metrics world.Metrics `json:"metrics"`
		}{
			WorldID: *worldID,
			Tick:    w.CurrentTick(),
			Tuning:  tune,
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})

	obsSrv := observer.NewServer(w, newLogger(os.Stdout, "observer"))
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Run saves on the way out; wait for it before closing the store.
	<-worldDone
}

func newLogger(out io.Writer, name string) *log.Logger {
	return log.New(out, "["+name+"] ", log.LstdFlags|log.Lmicroseconds)
}

func openStore(path, worldDir string) (kv.Store, error) {
	switch strings.TrimSpace(path) {
	case ":memory:":
		return kv.NewMemory(), nil
	case "":
		path = filepath.Join(worldDir, "kv.db")
	}
	return kv.OpenSQLite(path)
}

// loadChunks resumes the saved map, or starts a fresh one when there is no
// usable save.
func loadChunks(blobs kv.Store, tune tuning.Tuning, logger *log.Logger) *store.ChunkMap {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, ok, err := store.Load(ctx, blobs, tune.SaveKey)
	switch {
	case err != nil:
		logger.Printf("discarding unreadable save %q: %v", tune.SaveKey, err)
	case ok && m.Layout != tune.Layout():
		logger.Printf("save %q has layout %+v, tuning wants %+v; starting fresh", tune.SaveKey, m.Layout, tune.Layout())
	case ok:
		logger.Printf("resumed %q: chunks=%d focus=(%d,%d)", tune.SaveKey, m.Len(), m.Focus.X, m.Focus.Y)
		return m
	}
	return store.New(tune.Layout(), tune.SurfaceRow)
}

func writeMetrics(rw io.Writer, worldID string, m world.Metrics) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP tilecraft_world_%s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE tilecraft_world_%s gauge\n", name)
		fmt.Fprintf(rw, "tilecraft_world_%s{world=%q} %v\n", name, worldID, v)
	}
	unsaved := 0
	if m.Unsaved {
		unsaved = 1
	}
	gauge("tick", "Current world tick.", m.Tick)
	gauge("loaded_chunks", "Generated chunk count.", m.LoadedChunks)
	gauge("unsaved", "1 if the chunk map changed since the last save.", unsaved)
	gauge("saves", "Saves since start.", m.Saves)
	gauge("last_save_bytes", "Size of the last save.", m.LastSaveBytes)
	gauge("observers", "Connected observers.", m.Observers)
	gauge("inbox_depth", "Queued intents.", m.InboxDepth)
	gauge("step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	fmt.Fprintf(rw, "# HELP tilecraft_world_focus Focus chunk coordinate.\n")
	fmt.Fprintf(rw, "# TYPE tilecraft_world_focus gauge\n")
	fmt.Fprintf(rw, "tilecraft_world_focus{world=%q,axis=\"x\"} %d\n", worldID, m.Focus[0])
	fmt.Fprintf(rw, "tilecraft_world_focus{world=%q,axis=\"y\"} %d\n", worldID, m.Focus[1])
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
