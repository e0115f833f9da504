// Package web provides the HTTP server for cleaning uploaded datasets.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/config"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/web/middleware"
)

// HistoryReader lists past runs, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]core.Report, error)
}

// Options wires the server's dependencies. History and Metrics are optional.
type Options struct {
	Config      config.ServerConfig
	MaxFileSize int64
	Pipeline    *core.Pipeline
	History     HistoryReader
	Metrics     http.Handler
}

// Server is the HTTP server for the cleaner.
type Server struct {
	cfg         config.ServerConfig
	maxFileSize int64
	pipeline    *core.Pipeline
	history     HistoryReader
	metrics     http.Handler
	limiter     *core.RunLimiter
	router      *chi.Mux
	server      *http.Server
}

// NewServer creates a Server and builds its routes.
func NewServer(opts Options) *Server {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = core.DefaultMaxFileSize
	}

	s := &Server{
		cfg:         opts.Config,
		maxFileSize: maxSize,
		pipeline:    opts.Pipeline,
		history:     opts.History,
		metrics:     opts.Metrics,
		limiter:     core.NewRunLimiter(opts.Config.MaxConcurrentRuns, opts.Config.RunWait),
		router:      chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(middleware.SecurityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.APIKeys))

		r.Post("/clean", s.handleClean)
		r.Post("/clean/report", s.handleCleanReport)
		r.Get("/runs", s.handleListRuns)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
