// Package api serves bundle streams over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"modstream/internal/graph"
	"modstream/internal/targets"
)

// Server represents the HTTP delivery server
type Server struct {
	router   chi.Router
	server   *http.Server
	addr     string
	logger   *slog.Logger
	builder  *graph.Builder
	manifest *targets.Manifest
	started  time.Time
}

// NewServer creates a new HTTP server instance serving the targets of
// manifest, built with builder.
func NewServer(addr string, builder *graph.Builder, manifest *targets.Manifest, logger *slog.Logger) *Server {
	if manifest == nil {
		manifest = &targets.Manifest{}
	}
	s := &Server{
		addr:     addr,
		logger:   logger,
		builder:  builder,
		manifest: manifest,
		router:   chi.NewRouter(),
		started:  time.Now(),
	}

	s.applyMiddleware()
	s.registerRoutes()

	// No WriteTimeout: a bundle response lasts as long as its build.
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr, "targets", len(s.manifest.Targets))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// applyMiddleware installs middleware, outermost first
func (s *Server) applyMiddleware() {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
}
