// Package api serves the health and metrics endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/linkmeAman/twitter-to-kafka/internal/api/handlers"
	"github.com/linkmeAman/twitter-to-kafka/internal/api/middleware"
	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
)

// RouterConfig wires the endpoints to their backends.
type RouterConfig struct {
	Version        string
	MetricsPath    string
	MetricsHandler http.Handler
	Checks         map[string]handlers.Check
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Second))

	r.Get("/health", handlers.HealthHandler(cfg.Version, cfg.Checks))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.MetricsHandler)
	}

	return r
}
