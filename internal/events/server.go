package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openalpha/betexchange/internal/config"
)

// Server runs the read-only dashboard: /health, /snapshot, /ws, and the
// event broadcast loop. Grounded on internal/api/server.go.
type Server struct {
	cfg      config.DashboardConfig
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
	emitCh   chan Event
}

// NewServer wires the dashboard's HTTP mux, Hub, and Handlers.
func NewServer(cfg config.DashboardConfig, provider Provider, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		hub:      hub,
		handlers: handlers,
		server:   httpServer,
		logger:   logger.With("component", "events-server"),
		emitCh:   make(chan Event, 256),
	}
}

// Emit queues evt to be broadcast to every connected WebSocket client
// (non-blocking; a saturated queue drops the event and logs a warning
// rather than stalling the engine's transaction).
func (s *Server) Emit(evt Event) {
	select {
	case s.emitCh <- evt:
	default:
		s.logger.Warn("event emit channel full, dropping event", "kind", evt.Kind)
	}
}

// Start runs the Hub, the broadcast-forwarding loop, and the HTTP server.
// Blocks until the server is stopped.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.forwardEvents()

	s.logger.Info("dashboard starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) forwardEvents() {
	for evt := range s.emitCh {
		s.hub.Broadcast(evt)
	}
}
