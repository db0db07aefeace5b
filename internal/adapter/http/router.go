package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/adapter/http/handler"
	"github.com/iho/godeposit/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the ops router.
type RouterConfig struct {
	HealthHandler   *handler.HealthHandler
	ConsumerHandler *handler.ConsumerHandler // optional
	Gatherer        prometheus.Gatherer
	Requests        *prometheus.CounterVec   // optional
	Duration        *prometheus.HistogramVec // optional
	Logger          zerolog.Logger
}

// NewRouter creates the operational HTTP router: health checks, metrics and consumer status.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger, "/health", "/ready", "/metrics").Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Requests != nil && cfg.Duration != nil {
		r.Use(middleware.Metrics(cfg.Requests, cfg.Duration))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if cfg.ConsumerHandler != nil {
		r.Get("/consumer/status", cfg.ConsumerHandler.Status)
	}

	return r
}
