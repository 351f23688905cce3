package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig bundles the dependencies the router wires together.
type RouterConfig struct {
	Identity      *service.IdentityService
	Reviews       *service.ReviewService
	Catalog       *service.CatalogService
	HealthHandler *health.Handler
	Registry      *prometheus.Registry
	RateLimiter   middleware.CounterStore
	RateLimit     middleware.RateLimitConfig
	CORS          CORSConfig
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.Registry, "storefront"))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}).ServeHTTP(w, req)
	})

	authHandler := NewAuthHandler(cfg.Identity, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.Logger)
	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.Logger)

	// Token validator that bridges to the session manager.
	sessionGuard := middleware.Auth(func(ctx context.Context, token string) (*middleware.Claims, error) {
		claims, err := cfg.Identity.ValidateSession(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Role: claims.Role}, nil
	})

	r.Route("/api", func(r chi.Router) {
		// Public identity endpoints, rate limited per client.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			if cfg.RateLimiter != nil {
				r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.Logger))
			}

			r.Post("/signup", authHandler.Signup)
			r.Post("/signin", authHandler.Signin)
			r.Post("/auth/firebase-signup", authHandler.FirebaseSignup)
			r.Post("/auth/firebase-signin", authHandler.FirebaseSignin)
		})

		// Assertion-guarded profile (raw provider token, no session required).
		r.Get("/firebase-profile", authHandler.FirebaseProfile)

		// Session-guarded endpoints.
		r.Group(func(r chi.Router) {
			r.Use(sessionGuard)

			r.Get("/profile", authHandler.Profile)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/review/create/{userId}", reviewHandler.Create)
				r.Put("/review/{reviewId}/{userId}", reviewHandler.Update)
			})
			r.Delete("/review/{reviewId}/{userId}", reviewHandler.Delete)
		})

		// Public read endpoints.
		r.Get("/reviews", reviewHandler.List)
		r.Get("/reviews/product/{productId}", reviewHandler.GetByProduct)

		r.Get("/products", catalogHandler.List)
		r.Get("/products/related/{productId}", catalogHandler.Related)
		r.Get("/products/{productId}", catalogHandler.GetByID)
	})

	return r
}
