package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/motorhub/motorhub/internal/booking"
	"github.com/motorhub/motorhub/internal/listings"
	"github.com/motorhub/motorhub/internal/observability"
	"github.com/motorhub/motorhub/internal/promotion"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/users"
	"github.com/motorhub/motorhub/jobs"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	PermissionsHandler *rbac.PermissionsHandler
	BookingHandler     *booking.Handler
	PromotionHandler   *promotion.Handler
	ListingsHandler    *listings.Handler
	UsersHandler       *users.Handler
	JobHandler         *jobs.Handler
	Readiness          map[string]ReadinessCheck
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", readinessHandler(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(params.RBACMiddleware.Identify)
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.BookingHandler != nil {
			r.Route("/bookings", params.BookingHandler.MountRoutes)
		}
		if params.PromotionHandler != nil {
			r.Route("/upgrade-requests", params.PromotionHandler.MountRoutes)
		}
		if params.ListingsHandler != nil {
			r.Route("/listings", params.ListingsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
	})

	return r
}

func readinessHandler(logger *slog.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		body := `{"status":"ready"}`
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
				status = http.StatusServiceUnavailable
				body = `{"status":"unavailable","check":"` + name + `"}`
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
