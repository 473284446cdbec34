// Package server exposes the parse pipeline and the task store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/metrics"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/store"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
)

// ServiceName is reported by the index and health endpoints.
const ServiceName = "Academic Calendar Core (ACC) API"

// Parser is the part of the pipeline the API drives.
type Parser interface {
	Parse(text string) *pipeline.ParseResult
	ParseBatch(ctx context.Context, inputs []any, workers int) ([]*pipeline.ParseResult, error)
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Parser  Parser
	Store   store.Store
	Metrics *metrics.Metrics // optional
	Logger  logging.Logger

	MaxBatch    int
	Workers     int
	CORSOrigins []string
	Version     string

	// Clock stamps responses. Defaults to time.Now.
	Clock func() time.Time
}

// Server wraps the HTTP server and its router.
type Server struct {
	srv             *http.Server
	handler         http.Handler
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// New builds a Server listening on cfg.ListenAddr.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Parser == nil {
		return nil, errors.New("server: parser is required")
	}
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	handler := NewRouter(deps)

	return &Server{
		handler:         handler,
		logger:          deps.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
