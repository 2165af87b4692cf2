// Package server assembles the HTTP API: routing, middleware, health,
// and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/internal/search"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	"github.com/maryam-tariqq/DSA-Project/pkg/health"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
)

// Server owns the http.Server and its routes.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *slog.Logger
}

// New builds the router. checker and m may be nil for tests.
func New(cfg config.ServerConfig, engine *search.Engine, idx *index.Index, checker *health.Checker, m *metrics.Metrics) *Server {
	h := NewHandler(engine, idx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/autocomplete", h.Autocomplete)
	mux.HandleFunc("POST /api/documents", h.AddDocument)
	if checker != nil {
		mux.HandleFunc("GET /healthz", checker.Handler())
	}
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var handler http.Handler = mux
	handler = Metrics(m)(handler)
	handler = RequestID(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:    cfg,
		logger: logger.WithComponent("server"),
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
