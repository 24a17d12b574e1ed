// Package api provides the admin HTTP API: health probes, registration and
// spec info views, notification injection and the websocket event stream.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/api/handlers"
	"github.com/goclaw/oembridge/pkg/api/middleware"
	"github.com/goclaw/oembridge/pkg/logger"
)

// Handlers holds all HTTP handlers. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	// Health handles health check endpoints
	Health *handlers.HealthHandler

	// Bridge serves registration, spec info and listener history
	Bridge *handlers.BridgeHandler

	// Journal serves the persisted notification journal
	Journal *handlers.JournalHandler

	// Notifications injects notifications; only set for the local adapter
	Notifications *handlers.NotificationHandler

	// Events streams bridge events over websocket
	Events *handlers.WebSocketHandler

	// Metrics is the optional metrics recorder
	Metrics middleware.MetricsRecorder

	// MetricsHandler serves the Prometheus scrape endpoint
	MetricsHandler http.Handler
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(middleware.DefaultTracingOptions()))
	}
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	if h.Metrics != nil {
		r.Use(middleware.Metrics(h.Metrics))
	}
	r.Use(middleware.CORS(&cfg.Server.CORS))
	r.Use(middleware.Timeout(cfg.Server.HTTP.WriteTimeout))

	RegisterRoutes(r, cfg.Metrics.Path, h)

	return r
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(r chi.Router, metricsPath string, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		if h.Bridge != nil {
			r.Get("/registration", h.Bridge.Registration)
			r.Get("/specinfo", h.Bridge.SpecInfo)
			r.Get("/listener/history", h.Bridge.History)
		}
		if h.Journal != nil {
			r.Get("/listener/journal", h.Journal.List)
			r.Get("/listener/journal/{seq}", h.Journal.Get)
		}
		if h.Notifications != nil {
			r.Post("/notifications", h.Notifications.Inject)
		}
		if h.Events != nil {
			r.Get("/events", h.Events.ServeHTTP)
		}
	})

	// Health check routes (not versioned)
	if h.Health != nil {
		r.Get("/health", h.Health.Health)
		r.Get("/ready", h.Health.Ready)
		r.Get("/status", h.Health.Status)
	}

	if h.MetricsHandler != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, h.MetricsHandler)
	}
}
