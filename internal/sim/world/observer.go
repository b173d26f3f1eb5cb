package world

import (
	"encoding/hex"
	"encoding/json"

	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/sim/catalogs"
	simenc "tilecraft.ai/internal/sim/encoding"
	"tilecraft.ai/internal/sim/player"
	"tilecraft.ai/internal/sim/space"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

// ObserverJoinRequest registers a session that receives one FRAME per tick
// on Out. Control sessions also drive the player; when one leaves, held
// input is released.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
	Control   bool
}

type observerClient struct {
	id      string
	out     chan []byte
	control bool

	// sent is the last chunk digest sent to this client, so unchanged
	// chunks go out without tiles.
	sent map[space.ChunkPos][32]byte
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	w.observers[req.SessionID] = &observerClient{
		id:      req.SessionID,
		out:     req.Out,
		control: req.Control,
		sent:    map[space.ChunkPos][32]byte{},
	}
	w.logf("observer %s joined (control=%v)", req.SessionID, req.Control)
}

// handleObserverLeave drops a session and reports whether it held control.
// A control session's held input is released with it.
func (w *World) handleObserverLeave(id string) bool {
	oc, ok := w.observers[id]
	if !ok {
		return false
	}
	delete(w.observers, id)
	close(oc.out)
	if oc.control {
		w.held = player.Intent{}
	}
	w.logf("observer %s left", id)
	return oc.control
}

func (w *World) closeObservers() {
	for id, oc := range w.observers {
		close(oc.out)
		delete(w.observers, id)
	}
}

// Bootstrap describes the static parameters a renderer needs. Safe to call
// from any goroutine.
func (w *World) Bootstrap() protocol.BootstrapMsg {
	l := w.chunks.Layout
	inv := make([]string, len(player.Inventory))
	for i, id := range player.Inventory {
		inv[i] = id.String()
	}
	return protocol.BootstrapMsg{
		Type:            protocol.TypeBootstrap,
		ProtocolVersion: protocol.Version,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		TickRateHz:      w.cfg.TickRateHz,
		TileSize:        [2]int{l.Tile.W, l.Tile.H},
		ChunkSize:       [2]int{l.Chunk.W, l.Chunk.H},
		Virtual:         [2]int{l.Chunk.W * l.Tile.W, l.Chunk.H * l.Tile.H},
		Palette:         catalogs.Palette(),
		PaletteDigest:   catalogs.PaletteDigest(),
		Inventory:       inv,
	}
}

func (w *World) publish() {
	if len(w.observers) == 0 {
		return
	}
	around := w.chunks.AroundFocus()
	for _, oc := range w.observers {
		b, err := json.Marshal(w.frameFor(oc, around))
		if err != nil {
			w.logf("frame marshal: %v", err)
			return
		}
		if sendLatest(oc.out, b) {
			// A frame was dropped; it may have carried tiles.
			clear(oc.sent)
		}
	}
}

func (w *World) frameFor(oc *observerClient, around []store.Neighbor) protocol.FrameMsg {
	p := w.player
	body := p.Body
	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick.Load(),
		Focus:           [2]int{w.chunks.Focus.X, w.chunks.Focus.Y},
		Player: protocol.PlayerState{
			Pos:      [2]float64{body.Pos.X, body.Pos.Y},
			Size:     [2]int{body.W, body.H},
			Speed:    [2]float64{p.Speed.X, p.Speed.Y},
			Facing:   p.Facing.String(),
			Sprite:   p.Facing.Sprite(),
			Slot:     p.InventoryIndex(),
			Item:     p.Item().String(),
			Descent:  body.Descent(),
			SeenWood: body.SeenWood(),
		},
		Chunks:  make([]protocol.ChunkFrame, 0, len(around)),
		Unsaved: w.chunks.Unsaved(),
	}
	for _, n := range around {
		d := n.Chunk.Digest()
		cf := protocol.ChunkFrame{CX: n.Pos.X, CY: n.Pos.Y, Digest: hex.EncodeToString(d[:])}
		if last, ok := oc.sent[n.Pos]; !ok || last != d {
			cf.Tiles = simenc.EncodeRLE(n.Chunk.Tiles.Cells())
			oc.sent[n.Pos] = d
		}
		msg.Chunks = append(msg.Chunks, cf)
	}
	return msg
}

// sendLatest queues b, dropping the oldest queued message if the channel is
// full. It reports whether anything was dropped.
func sendLatest(ch chan []byte, b []byte) (dropped bool) {
	select {
	case ch <- b:
		return false
	default:
	}
	select {
	case <-ch:
		dropped = true
	default:
	}
	select {
	case ch <- b:
	default:
		dropped = true
	}
	return dropped
}
