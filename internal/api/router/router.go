// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oakhart/claude-agent/internal/admin"
	"github.com/oakhart/claude-agent/internal/chat"
	"github.com/oakhart/claude-agent/internal/http/handlers"
	httpmiddleware "github.com/oakhart/claude-agent/internal/http/middleware"
	"github.com/oakhart/claude-agent/internal/observability/metrics"
	"github.com/oakhart/claude-agent/internal/ratelimit"
	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	ChatMetrics        *metrics.ChatMetrics
	HealthHandler      *handlers.HealthHandler
	AdminStatsHandler  *admin.StatsHandler
	MetricsHandler     http.Handler
	RateLimiter        *ratelimit.Limiter
	RequestCounter     *sysmetrics.RequestCounter
	CORSAllowedOrigins []string
	AllowedHosts       []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.AllowedHosts) > 0 {
		r.Use(httpmiddleware.TrustedHosts(cfg.AllowedHosts))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.RequestCounter))

	r.Get("/", handlers.Root)
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Health)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		// The limiter guards only the chat endpoint; read endpoints and
		// health stay unthrottled.
		r.Group(func(chatRoutes chi.Router) {
			if cfg.RateLimiter != nil {
				chatRoutes.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.ChatMetrics))
			}
			chatRoutes.Post("/chat", cfg.ChatHandler.Chat)
		})

		r.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Get("/", cfg.ChatHandler.GetSession)
			sr.Get("/history", cfg.ChatHandler.GetHistory)
		})
	}

	if cfg.AdminStatsHandler != nil {
		r.Get("/admin/stats", cfg.AdminStatsHandler.GetStats)
	}

	return r
}
