package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fdk/resource-service/internal/api/handlers"
	mw "github.com/fdk/resource-service/internal/api/middleware"
)

type Dependencies struct {
	APIKey           string
	RateLimitRPS     float64
	RateLimitBurst   int
	TrustedProxyHops int

	HealthHandler          *handlers.HealthHandler
	UnionGraphsHandler     *handlers.UnionGraphsHandler
	ResourcesHandler       *handlers.ResourcesHandler
	CircuitBreakersHandler *handlers.CircuitBreakersHandler // nil when ingestion is disabled

	// Metrics serves /metrics. Defaults to the Prometheus default gatherer.
	Metrics http.Handler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst, dep.TrustedProxyHops))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	metricsHandler := dep.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/v1", func(api chi.Router) {
		// Public reads
		api.Get("/union-graphs/{id}/graph", dep.UnionGraphsHandler.Graph)
		api.Route("/resources", func(rr chi.Router) {
			rr.Get("/", dep.ResourcesHandler.List)
			rr.Get("/by-uri", dep.ResourcesHandler.ByURI)
			rr.Get("/{id}", dep.ResourcesHandler.Get)
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.APIKey(dep.APIKey))

			// Union graphs share a prefix with the public graph route, so no subrouter here.
			ug := dep.UnionGraphsHandler
			protected.Post("/union-graphs", ug.Create)
			protected.Get("/union-graphs", ug.List)
			protected.Get("/union-graphs/{id}/status", ug.Status)
			protected.Post("/union-graphs/{id}/reset", ug.Reset)
			protected.Delete("/union-graphs/{id}", ug.Delete)

			if cb := dep.CircuitBreakersHandler; cb != nil {
				protected.Route("/admin", func(ar chi.Router) {
					ar.Get("/circuit-breakers", cb.Status)
					ar.Post("/listeners/pause", cb.Pause)
					ar.Post("/listeners/resume", cb.Resume)
				})
			}
		})
	})

	return r
}
