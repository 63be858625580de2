package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/aesthetic-leads/internal/booking"
	"github.com/wolfman30/aesthetic-leads/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/aesthetic-leads/internal/http/middleware"
	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

const healthCheckTimeout = 2 * time.Second

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingHandler     *booking.Handler
	LeadsHandler       *leads.Handler
	AdminAuth          httpmiddleware.AdminAuthConfig
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Admin dashboard dependencies (optional)
	DB *sql.DB

	// HealthCheck, when set, must succeed for /health to report ok.
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.BookingHandler != nil {
			public.Post("/booking", cfg.BookingHandler.Submit)
		}
	})

	if cfg.AdminAuth.Password != "" || cfg.AdminAuth.JWTSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminAuth(cfg.AdminAuth))
			if cfg.LeadsHandler != nil {
				admin.Route("/leads", func(lr chi.Router) {
					lr.Get("/", cfg.LeadsHandler.ListLeads)
					lr.Get("/{leadID}", cfg.LeadsHandler.GetLead)
					lr.Patch("/{leadID}/status", cfg.LeadsHandler.UpdateStatus)
				})
			}
			if cfg.DB != nil {
				dashboard := handlers.NewAdminDashboardHandler(cfg.DB, cfg.Logger)
				admin.Get("/dashboard", dashboard.GetDashboard)
			}
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "degraded"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
