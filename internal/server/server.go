// Package server exposes the tool surface over HTTP: one POST route per
// tool, the tool catalogue, health, and Prometheus metrics. Every request
// is scoped to a tenant library resolved from the identity header.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/braindrive/library/internal/observability"
	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/pkg/config"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server is the HTTP facade over the tool dispatch table.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *observability.REDMetrics

	metricsHandler http.Handler
}

// Option adjusts optional server dependencies.
type Option func(*Server)

// WithTracer sets the tracer used for per-request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// WithMetrics sets the RED metrics recorded per tool call.
func WithMetrics(metrics *observability.REDMetrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithMetricsHandler sets the /metrics scrape handler.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) { s.metricsHandler = handler }
}

// New builds a Server from loaded configuration.
func New(cfg *config.Config, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		log:    log,
		tracer: nooptrace.NewTracerProvider().Tracer("braindrive-library"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler builds the full route tree wrapped in identity enforcement and
// tracing middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /mcp/tools", s.handleToolCatalogue)

	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	for _, name := range tools.Names() {
		mux.Handle("POST /mcp/tool:"+name, s.toolHandler(name))
	}

	return observability.HTTPMiddleware(s.tracer, s.enforceIdentity(mux))
}

// ListenAndServe runs the server until the context is cancelled, then
// drains connections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("http server listening", "addr", s.cfg.Server.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(drainCtx)
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
