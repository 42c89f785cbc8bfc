// Package gateway exposes the bus to browser widgets over WebSocket.
//
// Each connection gets its own set of bus subscriptions, which are released
// when the connection ends. Outbound delivery is fire-and-forget: a client
// that falls behind loses frames rather than stalling the bus.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/wire"
)

const (
	// DefaultSendBuffer is how many outbound frames may queue per client.
	DefaultSendBuffer = 256

	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	shutdownTimeout = 5 * time.Second
	maxFrameBytes   = 1 << 20
)

// Config configures a Server.
type Config struct {
	// AllowedOrigins lists accepted browser origins. Empty means same-origin
	// only; "*" accepts any origin.
	AllowedOrigins []string
	// SendBuffer overrides DefaultSendBuffer.
	SendBuffer int
}

// Server upgrades HTTP requests on /ws and bridges them to the workbench.
type Server struct {
	cfg      Config
	bus      *bus.Bus
	events   *pubsub.Broker[any]
	ctrl     wire.Controller
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clients atomic.Int64
	dropped atomic.Int64
}

// New creates a Server. events may be nil.
func New(cfg Config, b *bus.Bus, events *pubsub.Broker[any], ctrl wire.Controller) *Server {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		bus:    b,
		events: events,
		ctrl:   ctrl,
		ctx:    ctx,
		cancel: cancel,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the HTTP routes: /ws for widgets and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok clients=%d\n", s.clients.Load())
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts the
// listener down and closes every connection.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(log.CatGateway, "gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	<-errCh
	if err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}

// Close disconnects every client and waits for their handlers to return.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Dropped returns how many outbound frames were discarded for slow clients.
func (s *Server) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients.
		return true
	}
	if slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin) {
		return true
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "gateway closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn(log.CatGateway, "websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		send:   make(chan wire.Frame, s.cfg.SendBuffer),
	}
	c.run()
}
