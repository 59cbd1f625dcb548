// Package observer exposes the run over websocket for external
// viewers. Observers are read-only: each connection pulls frames
// sampled per house, never a lock over the whole grid, and nothing a
// viewer does can touch the repair protocol.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"repairtown.ai/internal/protocol"
)

// Source is what the server samples. Satisfied by runner.Runner.
type Source interface {
	Params() protocol.WorldParams
	Frame() protocol.FrameMsg
}

type Server struct {
	src Source
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(src Source, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
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
		resp := protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			WorldParams:     s.src.Params(),
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
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		if s.log != nil {
			s.log.Printf("observer connected: %s", r.RemoteAddr)
		}
		interval := make(chan time.Duration, 1)
		interval <- normalizeInterval(sub.FrameEveryMs)

		// Writer goroutine: one frame per tick, interval adjustable by
		// later SUBSCRIBE messages.
		stop := make(chan struct{})
		writeErr := make(chan error, 1)
		go func() {
			every := <-interval
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					writeErr <- nil
					return
				case every = <-interval:
					ticker.Reset(every)
				case <-ticker.C:
					b, err := json.Marshal(s.src.Frame())
					if err != nil {
						writeErr <- err
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub protocol.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
				continue
			}
			select {
			case interval <- normalizeInterval(sub.FrameEveryMs):
			default:
				// Drop updates under load; the client may resend.
			}
		}

		close(stop)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func normalizeInterval(ms int) time.Duration {
	if ms <= 0 {
		ms = 100
	}
	if ms < 20 {
		ms = 20
	}
	if ms > 5000 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
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
