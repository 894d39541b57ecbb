package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/dollarport/edu-site/internal/http/middleware"
	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/internal/site"
	"github.com/dollarport/edu-site/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	Site               *site.Site
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter throttles the lead form endpoints per client IP (optional).
	RateLimiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.FormCORS(cfg.CORSAllowedOrigins, "/leads", "/contact"))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Site != nil {
		r.Get("/health", cfg.Site.Health)
		r.Get("/robots.txt", cfg.Site.Robots)
		r.Get("/sitemap.xml", cfg.Site.Sitemap)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Lead capture forms
	if cfg.LeadsHandler != nil {
		h := cfg.LeadsHandler
		r.With(throttle(cfg, h, leads.LeadsRoute)).Post("/leads", h.SubmitLead)
		r.With(throttle(cfg, h, leads.ContactRoute)).Post("/contact", h.SubmitContact)
	}

	if cfg.Site != nil {
		r.Get("/*", cfg.Site.Static().ServeHTTP)
	}

	return r
}

func throttle(cfg *Config, h *leads.Handler, route leads.Route) func(http.Handler) http.Handler {
	return httpmiddleware.RateLimit(cfg.RateLimiter, h.Throttled(route), cfg.Logger)
}
