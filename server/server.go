// Package server exposes the rendering engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sambeau/fillin/config"
	"github.com/sambeau/fillin/pkg/fillin"
)

// Server is a fillin HTTP server instance.
type Server struct {
	config   *config.Config
	engine   *fillin.Engine
	logger   *slog.Logger
	maxBody  int64
	compress func(http.Handler) http.Handler
	version  string
	server   *http.Server
}

// New creates a server rendering with engine. A nil logger uses slog.Default.
func New(cfg *config.Config, engine *fillin.Engine, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = fillin.New(fillin.WithLogger(logger))
	}
	maxBody, err := config.ParseSize(cfg.Server.MaxBody)
	if err != nil {
		return nil, fmt.Errorf("server.max_body: %w", err)
	}
	compress, err := newCompressor(cfg.Server.Compression)
	if err != nil {
		return nil, err
	}
	return &Server{
		config:   cfg,
		engine:   engine,
		logger:   logger,
		maxBody:  maxBody,
		compress: compress,
		version:  version,
	}, nil
}

// Handler returns the routed handler with logging and compression applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if !s.config.Logging.Quiet {
		r.Use(s.requestLogger)
	}
	r.Use(s.limitBody)

	r.Get("/health", s.handleHealth)
	r.Post("/render", s.handleRender)
	r.Post("/check", s.handleCheck)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
	})

	return s.compress(r)
}

// Addr returns the listen address from configuration.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	timeout := s.config.Server.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting fillin server", "addr", "http://"+s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
