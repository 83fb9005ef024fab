package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalog-search/pkg/health"
	"github.com/utafrali/catalog-search/pkg/middleware"
)

const serviceName = "search"

// RouterConfig carries the HTTP-facing settings of the service.
type RouterConfig struct {
	// AdminToken protects reindex and synonym endpoints. Empty disables the check.
	AdminToken         string
	CORSOrigins        []string
	SuggestCacheMaxAge time.Duration
	RequestTimeout     time.Duration
	PprofEnabled       bool
	PprofAllowedCIDRs  []string
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	svc Service,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	// Search API endpoints
	searchHandler := NewSearchHandler(svc, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.With(middleware.CacheControl(cfg.SuggestCacheMaxAge)).Get("/suggest", searchHandler.Suggest)
		r.Get("/index", searchHandler.IndexState)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Post("/reindex", searchHandler.Reindex)
			r.Get("/reindex", searchHandler.ReindexStatus)
			r.Get("/synonyms", searchHandler.Synonyms)
			r.Put("/synonyms", searchHandler.UpdateSynonyms)
		})
	})

	return r
}
