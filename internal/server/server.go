// Package server exposes the current dataset and its metrics as a JSON API
// for the dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crimson-sun/clientpulse/internal/model"
)

const (
	defaultTopN            = 10
	defaultShutdownTimeout = 5 * time.Second
)

// Reader is the read side of the pipeline.
type Reader interface {
	Dataset() *model.Dataset
	Summary(f model.Filter) (model.Metrics, []model.Fallback, error)
}

// Option configures a Server.
type Option func(*Server)

// WithTopN sets the default length of the churn-risk and upsell lists. Default: 10.
func WithTopN(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown in Run. Default: 5s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// Server serves read-only views of a Reader.
type Server struct {
	reader          Reader
	topN            int
	shutdownTimeout time.Duration
}

// New creates a Server over r.
func New(r Reader, opts ...Option) *Server {
	s := &Server{reader: r, topN: defaultTopN, shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", s.metrics)
		r.Get("/trend", s.trend)
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.clients)
			r.Get("/churn-risk", s.top(model.ChurnRisk))
			r.Get("/upsell", s.top(model.UpsellPotential))
		})
	})
	return r
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
