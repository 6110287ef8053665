// Package httpapi is the thin ambient HTTP scaffolding around the
// QueryProcessor: it is not the full front-end surface (no auth, no
// routing policy, no rate limiting) but exists the way the host's
// worker service wraps its own core in a chi router — request IDs,
// structured logging, recovery, security headers, compression and a
// readiness gate for the routes that need the pipeline warmed up.
package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/health"
	"github.com/NaggiDev/practical-rag-sub000/internal/indexer"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/query"
)

// Deps bundles the collaborators the HTTP surface delegates to. Every
// field is read-only from the server's perspective.
type Deps struct {
	Processor *query.Processor
	Health    *health.Service
	Metrics   *health.Monitor
	Cache     *cache.Store
	Indexer   *indexer.Indexer
}

// Server owns the chi router and the async-ready flag that gates
// routes until its collaborators have finished warming up.
type Server struct {
	deps   Deps
	router *chi.Mux
	ready  atomic.Bool

	httpServer *http.Server
}

// NewServer builds a Server over its dependencies and wires the
// middleware stack and routes. Routes are reachable immediately;
// the ones requiring a warmed-up pipeline are gated by requireReady
// until MarkReady is called.
func NewServer(deps Deps, addr string) *Server {
	s := &Server{deps: deps, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// MarkReady flips the readiness gate; call once initial index
// warming and the first health probe cycle have completed.
func (s *Server) MarkReady() { s.ready.Store(true) }

// Ready reports whether the gated routes are currently serving.
func (s *Server) Ready() bool { return s.ready.Load() }

// Start begins serving and blocks until the context is cancelled, at
// which point it shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(securityHeaders)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/query", s.handleQuery)
		r.Delete("/query/{id}", s.handleCancelQuery)
		r.Post("/index", s.handleIndex)
	})
}

// requireReady returns 503 until MarkReady has been called, mirroring
// the host's pattern of serving /health immediately while gating the
// business routes on an async-initialized flag.
func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			http.Error(w, "service initializing", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("httpapi: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth always answers immediately so a load balancer or
// orchestrator can observe liveness during warmup.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, models.SystemHealth{Status: models.HealthHealthy})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Health.Health())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Cache       models.CacheStats         `json:"cache"`
		Performance models.PerformanceMetrics `json:"performance"`
		Trends      models.TrendsSnapshot     `json:"trends"`
	}{}
	if s.deps.Cache != nil {
		resp.Cache = s.deps.Cache.Stats(r.Context())
	}
	if s.deps.Health != nil {
		resp.Trends = s.deps.Health.Trends()
	}
	if s.deps.Metrics != nil {
		resp.Performance = s.deps.Metrics.Performance()
	}
	writeJSON(w, http.StatusOK, resp)
}
