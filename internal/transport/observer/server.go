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

	"voxelnav.ai/internal/observerproto"
	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/voxel"
)

const (
	defaultMaxNodes = 20000
	maxMaxNodes     = 200000
)

// Server streams DebugObserver snapshots to visualisers over websockets.
type Server struct {
	obs *pathfinding.DebugObserver
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	sessions atomic.Int64
}

func NewServer(obs *pathfinding.DebugObserver, logger *log.Logger) *Server {
	return &Server{
		obs: obs,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler mounts the status endpoint and the websocket stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/v1/status", s.StatusHandler())
	mux.HandleFunc("/debug/v1/ws", s.WSHandler())
	return mux
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		snap := s.obs.Snapshot()
		resp := observerproto.StatusResponse{
			ProtocolVersion: observerproto.Version,
			Enabled:         s.obs.Enabled(),
			Seq:             snap.Version,
			Visited:         len(snap.Visited),
			NotVisited:      len(snap.NotVisited),
			Path:            len(snap.Path),
			Sessions:        s.sessions.Load(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
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

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("D%d", s.nextID.Add(1))
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		var st subState
		st.set(sub)

		welcome := observerproto.WelcomeMsg{
			Type:            observerproto.TypeWelcome,
			ProtocolVersion: observerproto.Version,
			SessionID:       sid,
			Enabled:         s.obs.Enabled(),
			MaxNodes:        sub.MaxNodes,
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(welcome); err != nil {
			return
		}
		s.log.Printf("debug observer %s subscribed (interim=%v max_nodes=%d)", sid, sub.IncludeInterim, sub.MaxNodes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.stream(ctx, conn, &st)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				st.set(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Printf("debug observer %s left", sid)
	}
}

// stream pushes every new snapshot until ctx ends or a write fails.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn, st *subState) error {
	var sent uint64
	for {
		changed := s.obs.Changed()
		snap := s.obs.Snapshot()
		final := snap.Path != nil
		if snap.Version > sent && (final || st.interim.Load()) {
			b, err := json.Marshal(nodesMsg(snap, int(st.maxNodes.Load())))
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
		sent = snap.Version

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func nodesMsg(snap pathfinding.DebugSnapshot, maxNodes int) observerproto.DebugNodesMsg {
	msg := observerproto.DebugNodesMsg{
		Type:            observerproto.TypeDebugNodes,
		ProtocolVersion: observerproto.Version,
		Seq:             snap.Version,
		Final:           snap.Path != nil,
	}
	var cut bool
	msg.Visited, cut = positions(snap.Visited, maxNodes)
	msg.Truncated = msg.Truncated || cut
	msg.NotVisited, cut = positions(snap.NotVisited, maxNodes)
	msg.Truncated = msg.Truncated || cut
	if snap.Path != nil {
		msg.Path, cut = positions(snap.Path, maxNodes)
		msg.Truncated = msg.Truncated || cut
	}
	return msg
}

func positions(in []voxel.Vec3i, max int) ([][3]int, bool) {
	truncated := false
	if max > 0 && len(in) > max {
		in = in[:max]
		truncated = true
	}
	out := make([][3]int, len(in))
	for i, p := range in {
		out[i] = p.Array()
	}
	return out, truncated
}

type subState struct {
	interim  atomic.Bool
	maxNodes atomic.Int64
}

func (st *subState) set(sub observerproto.SubscribeMsg) {
	st.interim.Store(sub.IncludeInterim)
	st.maxNodes.Store(int64(sub.MaxNodes))
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.MaxNodes <= 0 {
		sub.MaxNodes = defaultMaxNodes
	}
	if sub.MaxNodes > maxMaxNodes {
		sub.MaxNodes = maxMaxNodes
	}
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
