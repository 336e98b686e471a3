package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/devportal/engine/internal/api/handlers"
	mw "github.com/devportal/engine/internal/api/middleware"
	"github.com/devportal/engine/pkg/metrics"
)

type Dependencies struct {
	JWTSecret    []byte
	Health       *handlers.HealthHandler
	Lineage      *handlers.LineageHandler
	Applications *handlers.ApplicationsHandler
	// Metrics serves /metrics when set.
	Metrics     http.Handler
	HTTPMetrics *metrics.HTTPMetrics
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging(dep.HTTPMetrics))
	r.Use(mw.CORS)
	if dep.RateLimit > 0 {
		r.Use(mw.RateLimit(dep.RateLimit, int(2*dep.RateLimit)))
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/lineage", func(lr chi.Router) {
			lr.Get("/topics/{id}/graph", dep.Lineage.TopicGraph)
			lr.Get("/topics/{id}/summary", dep.Lineage.TopicSummary)
			lr.Get("/applications/{id}/graph", dep.Lineage.ApplicationGraph)
			lr.Get("/applications/{id}/summary", dep.Lineage.ApplicationSummary)
			lr.Get("/workspaces/{id}/cross", dep.Lineage.CrossWorkspace)

			lr.Group(func(protected chi.Router) {
				protected.Use(mw.Auth(dep.JWTSecret))
				protected.Post("/observations", dep.Lineage.SubmitObservations)
				protected.Post("/maintenance/reset", dep.Lineage.ResetRolling)
				protected.Post("/maintenance/mark-inactive", dep.Lineage.MarkInactive)
			})
		})

		api.Route("/applications/{id}", func(ar chi.Router) {
			ar.Use(mw.Auth(dep.JWTSecret))
			ar.Get("/lifecycle", dep.Applications.Lifecycle)
			ar.Post("/decommission", dep.Applications.Decommission)
			ar.Post("/decommission/cancel", dep.Applications.CancelDecommission)
			ar.Post("/force-delete", dep.Applications.ForceDelete)
		})
	})

	return r
}
