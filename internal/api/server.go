// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlerapi "github.com/keelquant/keel/internal/api/handler/api"
	"github.com/keelquant/keel/internal/api/job"
	"github.com/keelquant/keel/internal/api/middleware"
	"github.com/keelquant/keel/internal/backtest"
	"github.com/keelquant/keel/internal/metrics"
	"github.com/keelquant/keel/internal/signal"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MaxJobs     int
	JobTTL      time.Duration
	MetricsPath string // empty disables the Prometheus endpoint
}

// Server is the keel HTTP server: backtest job submission plus health
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
	backtests  *handlerapi.BacktestHandler
	registry   *metrics.Registry
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg Config,
	logger *zap.Logger,
	registry *metrics.Registry,
	signalBase signal.Config,
	accountBase backtest.Config,
) *Server {
	mux := http.NewServeMux()
	jobs := job.NewStore(cfg.MaxJobs, cfg.JobTTL)

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      metrics.HTTPMiddleware(registry)(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:   logger,
		mux:      mux,
		jobs:     jobs,
		registry: registry,
		backtests: handlerapi.NewBacktestHandler(
			jobs,
			backtest.NewRunner(logger),
			registry,
			signalBase,
			accountBase,
		),
	}
	s.setupRoutes(cfg)

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(cfg Config) {
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.Handle("/api/v1/backtest", auth(http.HandlerFunc(s.handleBacktest)))
	s.mux.Handle("/api/v1/backtest/", auth(http.HandlerFunc(s.handleBacktestStatus)))

	s.mux.HandleFunc("/healthz", s.handleHealth)
	if cfg.MetricsPath != "" {
		s.mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.backtests.Create(w, r)
}

func (s *Server) handleBacktestStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/backtest/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.NotFound(w, r)
		return
	}
	s.backtests.GetStatus(w, r, jobID)
}
