package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/radio-control/chanhop/internal/auth"
	"github.com/radio-control/chanhop/internal/config"
	"github.com/radio-control/chanhop/internal/logging"
)

// Server is the HTTP API server.
type Server struct {
	cfg            config.APIConfig
	orchestrator   OrchestratorPort
	telemetryHub   TelemetryPort
	metrics        http.Handler
	authMiddleware *auth.Middleware
	logger         logging.Logger

	httpServer *http.Server
	startTime  time.Time
	clock      func() time.Time
}

// NewServer creates a server. metrics may be nil, in which case /metrics is
// not served; a nil authMiddleware disables authentication.
func NewServer(cfg config.APIConfig, orchestrator OrchestratorPort, hub TelemetryPort, metrics http.Handler, authMiddleware *auth.Middleware, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Noop()
	}
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(nil)
	}
	return &Server{
		cfg:            cfg,
		orchestrator:   orchestrator,
		telemetryHub:   hub,
		metrics:        metrics,
		authMiddleware: authMiddleware,
		logger:         logger,
		startTime:      time.Now(),
		clock:          time.Now,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start serves on the configured address until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.Listen,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
	}

	s.logger.Info(context.Background(), "api listening", logging.String("addr", s.cfg.Listen))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
