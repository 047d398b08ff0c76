// Package api serves structure searches over HTTP.
//
// Routes (all JSON unless noted):
//
//	GET    /healthz
//	POST   /v1/searches                 submit a search; 202 with a job, or 200 when cached
//	GET    /v1/searches/{id}            job status and progress
//	POST   /v1/searches/{id}/stop       cooperative stop, keeps samples drawn so far
//	GET    /v1/searches/{id}/result     result of a finished job
//	GET    /v1/runs?limit=N             stored runs, newest first
//	GET    /v1/runs/{id}                one stored run with its result
//	DELETE /v1/runs/{id}
//	GET    /v1/runs/{id}/render         ?format=svg|dot|pdf|png&mmlec=0&detailed=true (not JSON)
//	GET    /v1/interleave?a=&b=         C(a+b, a)
//	GET    /v1/dags/{n}                 number of labelled DAGs on n nodes
//	POST   /v1/extensions               linear extensions of a DAG
//
// Errors are returned as {"code": "...", "error": "..."} with the status
// derived from the error code.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/pipeline"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultMaxBody bounds request bodies, which carry whole CSV datasets.
	DefaultMaxBody = 32 << 20

	// DefaultJobRetention is how long finished jobs stay pollable.
	DefaultJobRetention = time.Hour

	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP API. It owns the background search jobs it starts.
type Server struct {
	runner    *pipeline.Runner
	logger    *log.Logger
	router    chi.Router
	jobs      *jobs
	maxBody   int64
	retention time.Duration

	wg sync.WaitGroup // finishing goroutines of running jobs
}

// New creates a server around runner. If logger is nil, log.Default() is used.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:    runner,
		logger:    logger,
		jobs:      newJobs(),
		maxBody:   DefaultMaxBody,
		retention: DefaultJobRetention,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/searches", func(r chi.Router) {
			r.Post("/", s.handleSubmit)
			r.Get("/{id}", s.handleJob)
			r.Post("/{id}/stop", s.handleStop)
			r.Get("/{id}/result", s.handleJobResult)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Delete("/{id}", s.handleDeleteRun)
			r.Get("/{id}/render", s.handleRenderRun)
		})
		r.Get("/interleave", s.handleInterleave)
		r.Get("/dags/{n}", s.handleNumDAGs)
		r.Post("/extensions", s.handleExtensions)
	})
	return r
}

// observe reports every request to the registered server hooks and logs it
// at debug level.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then stops running
// jobs and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops every running job and waits until their results are stored.
func (s *Server) Close() {
	s.jobs.stopAll()
	s.wg.Wait()
}

// sweep drops finished jobs older than the retention period.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.jobs.prune(now.Add(-s.retention)); n > 0 {
				s.logger.Debug("pruned finished jobs", "count", n)
			}
		}
	}
}
