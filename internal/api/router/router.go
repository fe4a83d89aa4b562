// Package router assembles the full HTTP surface of the composer API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowline-ai/flowline/internal/canvas"
	"github.com/flowline-ai/flowline/internal/http/handlers"
	httpmiddleware "github.com/flowline-ai/flowline/internal/http/middleware"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	WizardHandler      *wizard.Handler
	CanvasHandler      *canvas.Handler
	AssistHandler      *handlers.AssistHandler
	ProvidersHandler   *handlers.ProvidersHandler
	WorkflowsHandler   *handlers.WorkflowsHandler
	MonitoringHandler  *handlers.MonitoringHandler
	HistoryHandler     *handlers.HistoryHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
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
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health check, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Composer API
	r.Route("/api", func(api chi.Router) {
		if cfg.WizardHandler != nil {
			api.Mount("/sessions", cfg.WizardHandler.Routes())
		}
		if cfg.CanvasHandler != nil {
			api.Mount("/canvas", cfg.CanvasHandler.Routes())
		}
		if cfg.AssistHandler != nil {
			api.Mount("/assist", cfg.AssistHandler.Routes())
		}
		if cfg.ProvidersHandler != nil {
			api.Mount("/providers", cfg.ProvidersHandler.Routes())
		}
		if cfg.WorkflowsHandler != nil {
			api.Mount("/workflows", cfg.WorkflowsHandler.Routes())
		}
		if cfg.MonitoringHandler != nil {
			api.Mount("/monitoring", cfg.MonitoringHandler.Routes())
		}
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.HistoryHandler != nil {
				admin.Mount("/history", cfg.HistoryHandler.Routes())
			}
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
