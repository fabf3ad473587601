// Package server is the HTTP front door: one GET endpoint per shipped
// graph, a generic JSON run endpoint, run lookup, a plain chat endpoint,
// health and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randalmurphal/triage/internal/runner"
	"github.com/randalmurphal/triage/pkg/triage/llm"
)

// Chat endpoint defaults.
const (
	DefaultChatQuery = "你好，很高兴认识你，能简单介绍一下自己吗？"
	ChatSystemPrompt = "你是一个博学的智能聊天助手，请根据用户提问回答！"
	ChatTopP         = 0.7
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 500
	shutdownGraceTime   = 15 * time.Second
)

// Server serves graph runs over HTTP.
type Server struct {
	runner  *runner.Runner
	chat    llm.Client
	logger  *slog.Logger
	metrics *httpMetrics
	prom    *prometheus.Registry
}

// Option configures a Server.
type Option func(*Server)

// WithChatClient enables /helloworld/simple/chat.
func WithChatClient(c llm.Client) Option {
	return func(s *Server) { s.chat = c }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrometheusRegistry exposes reg at /metrics and registers the HTTP
// metrics in it. Default: a fresh registry with Go and process collectors.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.prom = reg
		}
	}
}

// New creates a Server running graphs through r.
func New(r *runner.Runner, opts ...Option) *Server {
	s := &Server{
		runner: r,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prom == nil {
		s.prom = prometheus.NewRegistry()
		s.prom.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.metrics = newHTTPMetrics(s.prom)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{}))

	r.Get("/helloworld/simple/chat", s.handleSimpleChat)

	r.Route("/graph", func(r chi.Router) {
		r.Get("/recommendedPlaces/places", s.handlePlaces)
		r.Get("/{name}/chat", s.handleGraphChat)
		r.Get("/{name}/run", s.handleRun)
		r.Post("/{name}/run", s.handleRun)
		r.Get("/{name}/diagram", s.handleDiagram)
	})

	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{runID}", s.handleGetRun)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout (default 15s).
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = shutdownGraceTime
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
