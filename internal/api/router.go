// Package api provides the HTTP API for Punctual.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/api/handler"
	"github.com/punctualhq/punctual/internal/api/middleware"
	"github.com/punctualhq/punctual/internal/notify"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	AlertService *alert.Service
	Notifier     *notify.Service
	DB           handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "punctual-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	alertHandler := handler.NewAlertHandler(cfg.AlertService)
	messageHandler := handler.NewMessageHandler(cfg.Notifier)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	messageRateLimit := middleware.RateLimitByIP(middleware.MessageRateLimit)     // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Alert endpoints. Create and recalculate call the directions
		// provider, so they get the stricter limit.
		r.Route("/alerts", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", alertHandler.ListAlerts)
			r.With(expensiveRateLimit).Post("/", alertHandler.CreateAlert)
			r.Route("/{alertId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", alertHandler.GetAlert)
				r.With(standardRateLimit).Delete("/", alertHandler.DeleteAlert)
				r.With(expensiveRateLimit).Post("/recalculate", alertHandler.RecalculateAlert)
				r.With(standardRateLimit).Post("/cancel", alertHandler.CancelAlert)
			})
		})

		// Message delivery test - sends a real SMS, strict rate limiting
		r.With(messageRateLimit).Post("/messages/test", messageHandler.SendTestMessage)
	})

	return r
}
