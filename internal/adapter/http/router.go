package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler    *handler.LedgerHandler
	AccountHandler   *handler.AccountHandler
	SessionHandler   *handler.SessionHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	HTTPMetrics      *middleware.HTTPMetrics
	// Gatherer backs /metrics; the endpoint is omitted when nil.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, usecase.IdempotencyKeyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		if cfg.AccountHandler != nil {
			r.Get("/customers/{id}/accounts", cfg.AccountHandler.ListByCustomer)
			r.Post("/accounts", cfg.AccountHandler.Open)
		}

		r.Route("/accounts/{id}", func(r chi.Router) {
			if cfg.AccountHandler != nil {
				r.Delete("/", cfg.AccountHandler.Close)
			}
			r.Get("/ledger", cfg.LedgerHandler.Get)
			r.Post("/movements", cfg.LedgerHandler.CreateMovement)
			r.Delete("/movements/{movementId}", cfg.LedgerHandler.DeleteMovement)
			r.Post("/reconcile", cfg.LedgerHandler.Reconcile)
		})

		if cfg.SessionHandler != nil {
			r.Route("/session", func(r chi.Router) {
				r.Put("/account", cfg.SessionHandler.SelectAccount)
				r.Get("/account", cfg.SessionHandler.GetAccount)
				r.Delete("/account", cfg.SessionHandler.ClearAccount)
				r.Get("/ledger", cfg.SessionHandler.Ledger)
				r.Post("/movements", cfg.SessionHandler.CreateMovement)
				r.Delete("/movements/{movementId}", cfg.SessionHandler.DeleteMovement)
			})
		}
	})

	return r
}
