package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/moodmeter/moodmeter/internal/handler"
	"github.com/moodmeter/moodmeter/internal/middleware"
)

// RouterConfig carries the handlers and settings the router wires together.
type RouterConfig struct {
	Logger             *slog.Logger
	IsDevelopment      bool
	CORSAllowedOrigins []string // applied to the JSON API only; empty disables CORS
	MaxRequestBodySize int64
	SessionCookieName  string

	Keys     middleware.KeyResolver
	Sessions middleware.SessionResolver

	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
	Pages    *handler.PageHandler
	Accounts *handler.AccountHandler
	Analyze  *handler.AnalyzeHandler
	APIKeys  *handler.APIKeyHandler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	// Probes and metrics (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)
	r.Get("/favicon.ico", handler.Favicon)

	// Browser routes carry the session cookie.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(middleware.SessionConfig{
			Logger:     cfg.Logger,
			Sessions:   cfg.Sessions,
			CookieName: cfg.SessionCookieName,
		}))

		r.Get("/", cfg.Pages.Index)
		r.Get("/register", cfg.Accounts.RegisterPage)
		r.Post("/register", cfg.Accounts.Register)
		r.Get("/login", cfg.Accounts.LoginPage)
		r.Post("/login", cfg.Accounts.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSessionPage("/login"))

			r.Get("/logout", cfg.Accounts.Logout)
			r.Get("/dashboard", cfg.Accounts.Dashboard)
			r.Get("/analyze", cfg.Analyze.Form)
			r.Post("/analyze", cfg.Analyze.Web)
			r.Get("/api/docs", cfg.Pages.APIDocs)
		})

		r.With(middleware.RequireSessionJSON).Post("/api/generate_key", cfg.APIKeys.GenerateKey)
	})

	// JSON API authenticated by raw API key.
	r.Group(func(r chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			r.Use(cors.New(cors.Options{
				AllowedOrigins: cfg.CORSAllowedOrigins,
				AllowedMethods: []string{http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
				ExposedHeaders: []string{middleware.RequestIDHeader},
				MaxAge:         300,
			}).Handler)
			r.Options("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		}

		r.With(middleware.APIKeyAuth(middleware.APIKeyAuthConfig{
			Logger: cfg.Logger,
			Keys:   cfg.Keys,
		})).Post("/api/analyze", cfg.Analyze.API)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
