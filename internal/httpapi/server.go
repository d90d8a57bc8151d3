// Package httpapi exposes the sync engine and scheduler over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
	"github.com/livinlefevreloca/biosync/internal/scheduler"
)

// Engine runs one interactive sync
type Engine interface {
	TryRunOnce(ctx context.Context, trigger orchestrator.Trigger) (orchestrator.Result, error)
}

// Schedule controls the background timer
type Schedule interface {
	Start(intervalMinutes int32) error
	Stop()
	State() scheduler.State
}

// History reads persisted runs. ListSyncRuns returns newest first;
// GetSyncRun returns db.ErrNotFound for an unknown run ID.
type History interface {
	ListSyncRuns(ctx context.Context, limit int) ([]db.SyncRun, error)
	GetSyncRun(ctx context.Context, runID string) (*db.SyncRun, error)
}

// LogSource returns the recent log lines joined by newlines
type LogSource interface {
	String() string
}

// Deps are the collaborators served by the API. History and Logs may be nil.
type Deps struct {
	Engine   Engine
	Schedule Schedule
	History  History
	Logs     LogSource
}

// Options tune the router
type Options struct {
	// Path serving Prometheus metrics; empty disables the route
	MetricsPath string
}

// Server holds the HTTP handlers
type Server struct {
	deps    Deps
	options Options
	logger  *slog.Logger
}

// New creates a server
func New(deps Deps, options Options, logger *slog.Logger) *Server {
	return &Server{
		deps:    deps,
		options: options,
		logger:  logger,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	if s.options.MetricsPath != "" {
		r.Handle(s.options.MetricsPath, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Post("/schedule", s.handleSchedule)
		r.Get("/schedule/status", s.handleScheduleStatus)
		r.Get("/logs", s.handleLogs)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}", s.handleRunByID)
	})

	return r
}

// requestLogger logs one debug line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
