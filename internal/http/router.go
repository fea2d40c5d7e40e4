package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/autoparts-storefront/internal/metrics"
	"github.com/fjod/autoparts-storefront/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Registry       *shopper.Registry
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	JWTSecret      string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20 // 1MB
	}

	cartHandler := NewCartHandler(cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Registry))
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetCheckout)
			r.Post("/cod", checkoutHandler.SubmitCOD)
			r.Post("/online", checkoutHandler.StartOnline)
			r.Post("/online/verify", checkoutHandler.VerifyOnline)
			r.Post("/online/dismiss", checkoutHandler.DismissOnline)
			r.Post("/online/fail", checkoutHandler.FailOnline)
			r.Post("/acknowledge", checkoutHandler.Acknowledge)
		})

		r.Get("/session/resume", checkoutHandler.ResumeAfterLogin)
	})

	return otelhttp.NewHandler(r, "storefront")
}
