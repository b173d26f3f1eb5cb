package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/physics"
	"tilecraft.ai/internal/sim/player"
	"tilecraft.ai/internal/sim/space"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type Config struct {
	ID         string
	TickRateHz int
	// SaveEvery is the save timer period in seconds.
	SaveEvery float64
	SaveKey   string
	Player    player.Params
	// Verbose logs refused placements.
	Verbose bool
}

const (
	EventFocus = "FOCUS"
	EventSave  = "SAVE"
	EventPlace = "PLACE"
)

// Event is one entry of the world event log.
type Event struct {
	Tick   uint64      `json:"tick"`
	Kind   string      `json:"kind"`
	From   *[2]int     `json:"from,omitempty"`
	To     *[2]int     `json:"to,omitempty"`
	Tile   string      `json:"tile,omitempty"`
	At     *[2]float64 `json:"at,omitempty"`
	Chunks int         `json:"chunks,omitempty"`
	Bytes  int         `json:"bytes,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type EventLogger interface {
	WriteEvent(e Event) error
}

// World owns the chunk map, the physics space and the player.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg Config
	log *log.Logger

	tick atomic.Uint64

	chunks *store.ChunkMap
	space  *physics.Space
	player *player.Player

	kv        snapshot.BlobStore
	saveTimer float64
	saves     int
	lastSave  int

	// Optional (may be nil). Implemented in internal/persistence/log.
	eventLog EventLogger

	held  player.Intent
	inbox chan IntentRequest

	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]*observerClient

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	metrics atomic.Value
}

// New builds a world around chunks. kv may be nil, in which case nothing is
// persisted.
func New(cfg Config, chunks *store.ChunkMap, kv snapshot.BlobStore, logger *log.Logger) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	if cfg.SaveEvery <= 0 {
		return nil, fmt.Errorf("save period must be positive, got %v", cfg.SaveEvery)
	}
	if cfg.Player.Width <= 0 || cfg.Player.Height <= 0 {
		return nil, fmt.Errorf("player size %dx%d invalid", cfg.Player.Width, cfg.Player.Height)
	}
	if cfg.SaveKey == "" {
		cfg.SaveKey = "ChunkMap"
	}
	if chunks == nil {
		chunks = store.Default()
	}

	w := &World{
		cfg:           cfg,
		log:           logger,
		chunks:        chunks,
		space:         physics.NewSpace(chunks),
		kv:            kv,
		saveTimer:     cfg.SaveEvery,
		inbox:         make(chan IntentRequest, 256),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	id := w.space.AddActor(cfg.Player.Spawn, cfg.Player.Width, cfg.Player.Height)
	w.player = player.New(w.space.Actor(id), cfg.Player)
	chunks.OnFocus(w.onFocus)
	w.storeMetrics(0)
	return w, nil
}

func (w *World) SetEventLogger(l EventLogger) { w.eventLog = l }

// IntentRequest is one input sample for the player. SessionID names the
// control session that sent it; empty means a local driver. Requests from a
// session that is not (or no longer) a joined control session are dropped.
type IntentRequest struct {
	SessionID string
	Intent    player.Intent
}

func (w *World) Inbox() chan<- IntentRequest              { return w.inbox }
func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }
func (w *World) ObserverLeave() chan<- string             { return w.observerLeave }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) Config() Config          { return w.cfg }
func (w *World) CurrentTick() uint64     { return w.tick.Load() }
func (w *World) Chunks() *store.ChunkMap { return w.chunks }
func (w *World) Player() *player.Player  { return w.player }
func (w *World) Space() *physics.Space   { return w.space }

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}

func (w *World) emit(e Event) {
	if w.eventLog == nil {
		return
	}
	e.Tick = w.tick.Load()
	if err := w.eventLog.WriteEvent(e); err != nil {
		w.logf("event log: %v", err)
	}
}

// Step advances the world by dt seconds: timed save, cursor edit, player
// movement, then focus tracking.
func (w *World) Step(in player.Intent, dt float64) {
	start := time.Now()

	w.timedSave(dt)
	w.applyCursor(in)
	w.player.Update(w.space, in, dt)
	w.updateFocus()

	w.tick.Add(1)
	w.storeMetrics(float64(time.Since(start).Microseconds()) / 1000)
}

func (w *World) timedSave(dt float64) {
	w.saveTimer -= dt
	if w.saveTimer >= 0 {
		return
	}
	w.saveTimer = w.cfg.SaveEvery
	if !w.chunks.Unsaved() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := w.Save(ctx); err != nil {
		w.logf("save: %v", err)
	}
}

// Save writes the chunk map to the key-value store.
func (w *World) Save(ctx context.Context) (int, error) {
	if w.kv == nil {
		return 0, nil
	}
	n, err := w.chunks.Save(ctx, w.kv, w.cfg.SaveKey)
	if err != nil {
		w.emit(Event{Kind: EventSave, Error: err.Error()})
		return 0, err
	}
	w.saves++
	w.lastSave = n
	w.logf("saved %s: chunks=%d bytes=%d", w.cfg.SaveKey, w.chunks.Len(), n)
	w.emit(Event{Kind: EventSave, Chunks: w.chunks.Len(), Bytes: n})
	return n, nil
}

// applyCursor breaks (primary) or places the selected item (secondary) at
// the cursor. Pressing both does nothing.
func (w *World) applyCursor(in player.Intent) {
	if in.Cursor == nil || in.Primary == in.Secondary {
		return
	}
	tile := catalogs.Air
	if in.Secondary {
		tile = w.player.Item()
	}
	at := *in.Cursor
	before := w.chunks.TileAt(at)
	if err := w.chunks.PlaceTile(w.player.Body.Rect(), at, tile); err != nil {
		if w.cfg.Verbose || !errors.Is(err, store.ErrOverlap) {
			w.logf("place %s at (%.1f,%.1f): %v", tile, at.X, at.Y, err)
		}
		return
	}
	if before != tile {
		w.emit(Event{Kind: EventPlace, Tile: tile.String(), At: &[2]float64{at.X, at.Y}})
	}
}

// updateFocus moves the focus to the player's chunk and keeps its 3x3
// neighborhood generated.
func (w *World) updateFocus() {
	w.chunks.SetFocus(w.chunks.Layout.WorldToChunk(w.player.Body.Pos))
	w.chunks.AroundFocus()
}

func (w *World) onFocus(from, to space.ChunkPos) {
	w.logf("focus chunk (%d,%d) -> (%d,%d)", from.X, from.Y, to.X, to.Y)
	w.emit(Event{Kind: EventFocus, From: &[2]int{from.X, from.Y}, To: &[2]int{to.X, to.Y}})
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	dt := 1 / float64(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(w.done)
	defer w.closeObservers()

	var pending []IntentRequest

	for {
		select {
		case <-ctx.Done():
			w.finalSave()
			return ctx.Err()
		case <-w.stop:
			w.finalSave()
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.drainJoins()
			if w.handleObserverLeave(id) {
				pending = dropSession(pending, id)
			}
		case req := <-w.inbox:
			w.drainJoins()
			if w.acceptsIntent(req.SessionID) {
				pending = append(pending, req)
			}
		case <-ticker.C:
			w.Step(w.resolveIntent(pending), dt)
			pending = pending[:0]
			w.publish()
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

func (w *World) finalSave() {
	if !w.chunks.Unsaved() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := w.Save(ctx); err != nil {
		w.logf("final save: %v", err)
	}
}

// resolveIntent folds the intents received since the last tick. Held inputs
// take the latest value and persist until changed; presses, respawn and
// wheel steps apply to one tick only.
func (w *World) resolveIntent(batch []IntentRequest) player.Intent {
	in := w.held
	in.JumpPressed = false
	in.Respawn = false
	in.WheelDelta = 0
	for _, m := range batch {
		in = mergeIntent(in, m.Intent)
	}
	w.held = in
	return in
}

// acceptsIntent reports whether input from session may drive the player.
func (w *World) acceptsIntent(session string) bool {
	if session == "" {
		return true
	}
	oc, ok := w.observers[session]
	return ok && oc.control
}

// drainJoins handles queued joins first. A session's join is sent before its
// input and its leave, but select does not keep that order across channels.
func (w *World) drainJoins() {
	for {
		select {
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		default:
			return
		}
	}
}

// dropSession removes the queued input of a session that has left.
func dropSession(pending []IntentRequest, session string) []IntentRequest {
	kept := pending[:0]
	for _, r := range pending {
		if r.SessionID != session {
			kept = append(kept, r)
		}
	}
	return kept
}

func mergeIntent(acc, m player.Intent) player.Intent {
	acc.MoveLeft = m.MoveLeft
	acc.MoveRight = m.MoveRight
	acc.JumpHeld = m.JumpHeld
	acc.Descend = m.Descend
	acc.Primary = m.Primary
	acc.Secondary = m.Secondary
	acc.Cursor = m.Cursor
	acc.JumpPressed = acc.JumpPressed || m.JumpPressed
	acc.Respawn = acc.Respawn || m.Respawn
	acc.WheelDelta += m.WheelDelta
	return acc
}
