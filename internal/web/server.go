package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/signal_tracker/internal/usecase"
	"go.uber.org/zap"
)

// HealthProber reports whether the broker bridge is reachable.
type HealthProber interface {
	Health(ctx context.Context) error
}

type Server struct {
	router   *http.ServeMux
	server   *http.Server
	tracker  *usecase.TrackerService
	archiver *usecase.HistoryArchiver
	prober   HealthProber
	logger   *zap.Logger
}

func NewServer(
	port int,
	tracker *usecase.TrackerService,
	archiver *usecase.HistoryArchiver,
	prober HealthProber,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		tracker:  tracker,
		archiver: archiver,
		prober:   prober,
		logger:   logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Signals
	s.router.HandleFunc("GET /api/signals", s.handleActiveSignals)
	s.router.HandleFunc("POST /api/signals/sync", s.handleSync)

	// History
	s.router.HandleFunc("GET /api/signals/history", s.handleHistory)
	s.router.HandleFunc("DELETE /api/signals/history", s.handleClearHistory)

	// Status
	s.router.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
