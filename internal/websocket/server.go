// Package websocket serves the Resonite websocket endpoint: it accepts
// clients, answers their commands and pushes playback changes.
package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/bridge"
)

const shutdownTimeout = 10 * time.Second

// Options configure a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	PollInterval   time.Duration
	Observer       Observer
	Listener       Listener
}

// Server is the main application orchestrator.
type Server struct {
	addr       string
	httpServer *http.Server
	hub        *Hub
	poller     *Poller
	dispatcher *bridge.Dispatcher
	upgrader   websocket.Upgrader
}

// NewServer creates a new, fully configured WebSocket server.
func NewServer(opts Options, player bridge.Player, enricher bridge.Enricher) *Server {
	hub := NewHub(opts.Observer)
	s := &Server{
		addr:       opts.Addr,
		hub:        hub,
		poller:     NewPoller(player, enricher, hub, opts.PollInterval, opts.Listener),
		dispatcher: bridge.NewDispatcher(player, enricher),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return s
}

// originChecker allows every origin when allowed is empty. Clients that send
// no Origin header, such as Resonite, are always accepted.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		logrus.WithField("origin", origin).Warn("origin not allowed, rejecting connection")
		return false
	}
}

// Handler returns the HTTP handler. Client commands run under ctx.
func (s *Server) Handler(ctx context.Context) http.Handler {
	wsHandler := s.newWebsocketHandler(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			wsHandler(w, r)
			return
		}
		upgradeRequiredHandler(w, r)
	})
	return mux
}

// Nudge asks the poller for an early refresh.
func (s *Server) Nudge() {
	s.poller.Nudge()
}

// Run starts the server and its components and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		s.poller.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		logrus.Info("shutdown signal received, stopping http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("http server shutdown error")
		}
	}()

	logrus.WithField("addr", ln.Addr().String()).Info("http server listening")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	wg.Wait()

	return nil
}
