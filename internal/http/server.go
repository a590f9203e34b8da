// Package http exposes the services as a JSON API over chi.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sicof/internal/core"
	"sicof/internal/log"
	"sicof/internal/metrics"
	"sicof/internal/middleware/ratelimit"
	"sicof/internal/middleware/security"
	"sicof/internal/services"
	"sicof/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Addr               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MetricsEnabled     bool
	TrustedProxies     []string
}

type Server struct {
	http.Server
	cfg         Config
	svc         *services.Services
	store       storage.DocumentStore
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	resolver    *security.IPResolver

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc *services.Services, store storage.DocumentStore, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	resolver, err := security.NewIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		svc:         svc,
		store:       store,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		resolver:    resolver,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.realIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(s.logRequests)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.NoStore)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// streams outlive the request timeout
		r.Get("/credits/{id}/obligations/stream", s.handleObligationStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			r.Use(s.rateLimiter.Middleware(s.resolver.ClientIP, ratelimit.Mutating, s.onRateLimit))

			r.Route("/credits", func(r chi.Router) {
				r.Get("/", s.handleListCredits)
				r.Post("/", s.handleCreateCredit)
				r.Get("/{id}", s.handleGetCredit)
				r.Put("/{id}", s.handleUpdateCredit)
				r.Delete("/{id}", s.handleDeleteCredit)
				r.Post("/{id}/close", s.handleCloseCredit)
				r.Post("/{id}/reopen", s.handleReopenCredit)
				r.Get("/{id}/obligations", s.handleCreditObligations)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", s.handleListExpenses)
				r.Post("/", s.handleCreateExpense)
				r.Get("/{id}", s.handleGetExpense)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
				r.Get("/{id}/detail", s.handleExpenseDetail)
			})
			r.Post("/funding/validate", s.handleValidateFunding)

			r.Route("/obligations/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetObligation)
				r.Post("/fulfil", s.handleFulfilObligation)
				r.Put("/expenses", s.handleLinkExpenses)
			})

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/reports", s.handleListReports)
			r.Get("/reports/{name}", s.handleReport)

			r.Get("/goals", s.handleListGoals)
			r.Post("/goals", s.handleCreateGoal)
			r.Delete("/goals/{id}", s.handleDeleteGoal)

			r.Get("/closings", s.handleListClosings)
			r.Post("/closings", s.handleCloseYear)

			r.Get("/backup", s.handleExport)
			r.Put("/backup", s.handleImport)
			r.Get("/backups", s.handleListBackups)
			r.Post("/backups", s.handleCreateBackup)
			r.Post("/backups/{name}/restore", s.handleRestoreBackup)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%s: %w", r.URL.Path, core.ErrNotFound))
	})
	return r
}

// Shutdown stops background routines and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	up := s.store.CheckConnectivity(ctx)
	metrics.SetStoreUp(up)
	if !up {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Store unreachable")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.resolver.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}
