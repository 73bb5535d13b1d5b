package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Auth     *AuthHandler
	Catalog  *CatalogHandler
	Banners  *BannerHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Settings *SettingsHandler
	Users    *UserHandler

	Authenticator Authenticator
	Metrics       *Metrics
	Gatherer      prometheus.Gatherer
	HealthChecks  map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
	}

	router.Get("/health", handleHealth(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Authenticator))

		cfg.Auth.RegisterRoutes(r)
		cfg.Catalog.RegisterRoutes(r)
		cfg.Banners.RegisterRoutes(r)
		cfg.Settings.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)
			cfg.Users.RegisterRoutes(r)
			cfg.Cart.RegisterRoutes(r)
			cfg.Checkout.RegisterRoutes(r)
			cfg.Orders.RegisterRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			cfg.Catalog.RegisterAdminRoutes(r)
			cfg.Banners.RegisterAdminRoutes(r)
			cfg.Orders.RegisterAdminRoutes(r)
			cfg.Settings.RegisterAdminRoutes(r)
			cfg.Users.RegisterAdminRoutes(r)
		})
	})

	return router
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		respondWithJSON(w, code, resp)
	}
}
