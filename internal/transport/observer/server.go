package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/sim/geom"
	"tilecraft.ai/internal/sim/player"
	"tilecraft.ai/internal/sim/world"
)

// Server streams world frames to renderers over websocket. At most one
// session holds control and may send INTENT; the others watch.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	control  atomic.Bool
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.world.Bootstrap())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub, ok := s.handshake(conn)
		if !ok {
			return
		}
		if sub.Control && !s.control.CompareAndSwap(false, true) {
			writeJSON(conn, protocol.NewError(protocol.ErrBusy, "another session holds control"))
			closeConn(conn, websocket.CloseTryAgainLater, "control taken")
			return
		}
		if sub.Control {
			defer s.control.Store(false)
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 8)
		replies := make(chan []byte, 4)

		writeJSON(conn, s.world.Bootstrap())

		select {
		case s.world.ObserverJoin() <- world.ObserverJoinRequest{SessionID: sid, Out: out, Control: sub.Control}:
		default:
			writeJSON(conn, protocol.NewError(protocol.ErrBusy, "server busy"))
			closeConn(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer s.leave(sid)
		s.logf("observer %s connected from %s (control=%v)", sid, r.RemoteAddr, sub.Control)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			write := func(b []byte) error {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				return conn.WriteMessage(websocket.TextMessage, b)
			}
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-replies:
					if err := write(b); err != nil {
						writeErr <- err
						return
					}
				case b, ok := <-out:
					if !ok {
						writeErr <- nil
						return
					}
					if err := write(b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if e := s.handleMessage(sid, sub.Control, msg); e != nil {
				b, _ := json.Marshal(e)
				select {
				case replies <- b:
				default:
				}
			}
		}

		cancel()
		closeConn(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.logf("observer %s disconnected", sid)
	}
}

// leave tells the world a session is gone. It blocks until the world takes
// the leave or the world loop has stopped.
func (s *Server) leave(sid string) {
	select {
	case s.world.ObserverLeave() <- sid:
	case <-s.world.Done():
	}
}

// handshake reads the SUBSCRIBE that must open every connection.
func (s *Server) handshake(conn *websocket.Conn) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return sub, false
	}
	if err := protocol.ValidateRaw("subscribe.schema.json", msg); err != nil {
		writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected SUBSCRIBE: "+err.Error()))
		closeConn(conn, websocket.ClosePolicyViolation, "bad subscribe")
		return sub, false
	}
	if err := json.Unmarshal(msg, &sub); err != nil {
		closeConn(conn, websocket.ClosePolicyViolation, "bad subscribe")
		return sub, false
	}
	if sub.ProtocolVersion != protocol.Version {
		writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "unsupported protocol version "+sub.ProtocolVersion))
		closeConn(conn, websocket.ClosePolicyViolation, "protocol version")
		return sub, false
	}
	return sub, true
}

// handleMessage routes one client message after the handshake and returns
// the error to report back, if any.
func (s *Server) handleMessage(sid string, control bool, msg []byte) *protocol.ErrorMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		e := protocol.NewError(protocol.ErrProtoBadRequest, "invalid json")
		return &e
	}
	if base.Type != protocol.TypeIntent {
		e := protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
		return &e
	}
	if !control {
		e := protocol.NewError(protocol.ErrReadOnly, "session is read-only")
		return &e
	}
	if err := protocol.ValidateRaw("intent.schema.json", msg); err != nil {
		e := protocol.NewError(protocol.ErrProtoBadRequest, err.Error())
		return &e
	}
	var im protocol.IntentMsg
	if err := json.Unmarshal(msg, &im); err != nil {
		e := protocol.NewError(protocol.ErrProtoBadRequest, err.Error())
		return &e
	}
	select {
	case s.world.Inbox() <- world.IntentRequest{SessionID: sid, Intent: intentFrom(im)}:
		return nil
	default:
		e := protocol.NewError(protocol.ErrBusy, "inbox full")
		return &e
	}
}

func intentFrom(m protocol.IntentMsg) player.Intent {
	in := player.Intent{
		MoveLeft:    m.MoveLeft,
		MoveRight:   m.MoveRight,
		JumpHeld:    m.JumpHeld,
		JumpPressed: m.JumpPressed,
		Descend:     m.Descend,
		Respawn:     m.Respawn,
		WheelDelta:  m.WheelDelta,
		Primary:     m.Primary,
		Secondary:   m.Secondary,
	}
	if m.Cursor != nil {
		c := geom.V(m.Cursor[0], m.Cursor[1])
		in.Cursor = &c
	}
	return in
}

func writeJSON(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
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
