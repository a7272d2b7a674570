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

	"terraforge.ai/internal/observerproto"
	"terraforge.ai/internal/worldgen/pipeline"
)

type Server struct {
	world atomic.Pointer[pipeline.World]
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *pipeline.World, logger *log.Logger) *Server {
	s := &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	s.world.Store(w)
	return s
}

// SetWorld swaps the served world. Open sessions see it on their next SUBSCRIBE.
func (s *Server) SetWorld(w *pipeline.World) {
	s.world.Store(w)
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

		w := s.world.Load()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldParams: observerproto.WorldParams{
				Seed:   w.Seed,
				Width:  w.Width,
				Height: w.Height,
				Digest: w.Digest(),
			},
			Layers:        layerInfos(w),
			BiomePalette:  swatches(w.BiomePalette),
			ResourceKinds: swatches(w.ResourceKinds),
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
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		s.logf("observer %s connected from %s", sid, r.RemoteAddr)
		out := make(chan []byte, 16)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						writeErr <- err
						return
					}
				}
			}
		}()

		if !s.enqueue(ctx, out, sub.Layer) {
			return
		}

		// Reader loop: each SUBSCRIBE requests another layer.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
				if !s.enqueueError(ctx, out, observerproto.ErrProtoBadRequest, "expected SUBSCRIBE") {
					break
				}
				continue
			}
			if !s.enqueue(ctx, out, sub.Layer) {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		s.logf("observer %s disconnected", sid)

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// enqueue builds the frame for layer and hands it to the writer. It reports
// false once the session is gone.
func (s *Server) enqueue(ctx context.Context, out chan<- []byte, layer string) bool {
	msg, code, text := buildLayer(s.world.Load(), layer)
	if code != "" {
		return s.enqueueError(ctx, out, code, text)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return s.enqueueError(ctx, out, observerproto.ErrInternal, err.Error())
	}
	return send(ctx, out, b)
}

func (s *Server) enqueueError(ctx context.Context, out chan<- []byte, code, text string) bool {
	b, _ := json.Marshal(observerproto.ErrorMsg{
		Type:            "ERROR",
		ProtocolVersion: observerproto.Version,
		Code:            code,
		Message:         text,
	})
	return send(ctx, out, b)
}

func send(ctx context.Context, out chan<- []byte, b []byte) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
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
