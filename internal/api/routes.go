package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paper-trader/config"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.HandleListAccounts)
			r.Post("/", h.HandleCreateAccount)
			r.Get("/{id}", h.HandleGetAccount)
			r.Delete("/{id}", h.HandleDeactivateAccount)
			r.Put("/{id}/oracle", h.HandleUpdateOracle)
			r.Get("/{id}/overview", h.HandleGetOverview)
			r.Get("/{id}/positions", h.HandleGetPositions)
			r.Get("/{id}/orders", h.HandleGetOrders)
			r.Get("/{id}/trades", h.HandleGetTrades)
			r.Get("/{id}/decisions", h.HandleGetDecisions)
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.HandlePlaceOrder)
			r.Delete("/{id}", h.HandleCancelOrder)
		})

		// Quotes
		r.Get("/quotes/{symbol}", h.HandleGetQuote)
	})

	return r
}

// CORSMiddleware returns CORS middleware with the specified allowed origins
func CORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
