// Package api exposes question generation, answer recording and progression
// over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/telemetry"
)

// Server holds the HTTP handlers.
type Server struct {
	app     *app.App
	log     *logger.Logger
	metrics *telemetry.Metrics
	timings *telemetry.Timings
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics mounts the Prometheus handler on /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTimings mounts the timing statistics on /debug/timings.
func WithTimings(t *telemetry.Timings) Option {
	return func(s *Server) { s.timings = t }
}

func NewServer(a *app.App, opts ...Option) *Server {
	s := &Server{app: a}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)
	r.Post("/generate-questions", s.handleGenerateQuestions)
	r.Post("/responses", s.handleRecordResponse)
	r.Get("/progression", s.handleProgression)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	if s.timings != nil {
		r.Get("/debug/timings", s.handleTimings)
		r.Delete("/debug/timings", s.handleResetTimings)
	}
	return r
}
