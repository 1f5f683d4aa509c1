// Package transport runs the WebSocket server: it accepts phone
// connections, owns the Session Table, drives the per-connection
// protocol state machine, and forwards accepted scans to the delivery
// channel.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/scanlink/scanlinkd/internal/delivery"
	"github.com/scanlink/scanlinkd/internal/session"
	"github.com/scanlink/scanlinkd/internal/store"
)

const (
	defaultMaxMessageBytes = 512 * 1024
	defaultPongWait        = 60 * time.Second
	defaultPingPeriod      = (defaultPongWait * 9) / 10
)

// Config holds the knobs the Supervisor assembles for one transport
// lifetime. MasterToken is fixed for that lifetime: regenerating it
// means stopping this server and starting a fresh one.
type Config struct {
	Port            int
	MasterToken     string
	MaxMessageBytes int64
	PongWait        time.Duration
	PingPeriod      time.Duration
	// RateLimit/RateBurst bound connection attempts per second; zero
	// disables the limiter.
	RateLimit float64
	RateBurst int
}

func (c Config) maxMessageBytes() int64 {
	if c.MaxMessageBytes > 0 {
		return c.MaxMessageBytes
	}
	return defaultMaxMessageBytes
}

func (c Config) pongWait() time.Duration {
	if c.PongWait > 0 {
		return c.PongWait
	}
	return defaultPongWait
}

func (c Config) pingPeriod() time.Duration {
	if c.PingPeriod > 0 {
		return c.PingPeriod
	}
	return defaultPingPeriod
}

// Server is the WebSocket transport. It owns the Session Table for its
// lifetime; a fresh Server is created on every Supervisor "start".
type Server struct {
	cfg      Config
	store    *store.Store
	sessions *session.Table
	delivery *delivery.Channel

	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	mu      sync.Mutex
	addr    string
	httpSrv *http.Server
}

// NewServer creates a transport bound to the given credential store and
// delivery channel. The session table is fresh for this server's
// lifetime.
func NewServer(cfg Config, st *store.Store, dc *delivery.Channel) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: session.NewTable(),
		delivery: dc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Addr returns the bound address, or "" before ListenAndServe reaches
// the listening state.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Sessions exposes the Session Table for Supervisor queries (connected
// device count, live device list).
func (s *Server) Sessions() *session.Table {
	return s.sessions
}

// ListenAndServe binds 0.0.0.0:<port>, serves WebSocket upgrades on the
// root path, and blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", MetricsHandler())

	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", s.cfg.Port))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpSrv = &http.Server{Handler: mux}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.sessions.Clear()
		s.httpSrv.Close()
	}()

	err = s.httpSrv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown clears the session table so no further messages are emitted,
// then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Clear()
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		RateLimitedTotal.Inc()
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wsConn.SetReadLimit(s.cfg.maxMessageBytes())

	sess := s.sessions.NewSession()
	ConnectedSessions.Inc()
	defer ConnectedSessions.Dec()

	pongWait := s.cfg.pongWait()
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(wsConn, sess)
	}()

	s.readPump(r.Context(), wsConn, sess)

	s.sessions.Remove(sess)
	wsConn.Close()
	wg.Wait()
}

// writePump drains sess.Outbound into the socket and pings on an
// interval, until the outbound queue is closed (by eviction or Remove).
func (s *Server) writePump(ws *websocket.Conn, sess *session.Session) {
	ticker := time.NewTicker(s.cfg.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sess.Outbound:
			if !ok {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			MessagesTotal.WithLabelValues("out").Inc()
		case <-ticker.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound frames and dispatches them to the protocol
// engine until the socket closes. Non-text frames are ignored.
func (s *Server) readPump(ctx context.Context, ws *websocket.Conn, sess *session.Session) {
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		MessagesTotal.WithLabelValues("in").Inc()
		s.dispatch(sess, data)
	}
}

func (s *Server) logger() *slog.Logger {
	return slog.Default().With("component", "transport")
}
