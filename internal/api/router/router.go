// Package router wires HTTP routes for the sync API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oncontrol/platform/internal/http/handlers"
	httpmiddleware "github.com/oncontrol/platform/internal/http/middleware"
	"github.com/oncontrol/platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	AuthHandler        *handlers.AuthHandler
	SyncHandler        *handlers.SyncHandler
	LiveHandler        *handlers.LiveHandler
	SessionJWTSecret   string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
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

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Route("/auth", func(r chi.Router) {
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
			})
		}
	})

	// Session-scoped endpoints (mutations and the live feed)
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.SessionJWT(cfg.SessionJWTSecret))

		if cfg.SyncHandler != nil {
			private.Route("/api", func(r chi.Router) {
				r.Post("/patients", cfg.SyncHandler.CreatePatient)
				r.Patch("/patients/{id}", cfg.SyncHandler.UpdatePatient)
				r.Delete("/patients/{id}", cfg.SyncHandler.DeletePatient)

				r.Post("/appointments", cfg.SyncHandler.CreateAppointment)
				r.Patch("/appointments/{id}", cfg.SyncHandler.UpdateAppointment)
				r.Delete("/appointments/{id}", cfg.SyncHandler.DeleteAppointment)

				r.Post("/alerts", cfg.SyncHandler.CreateAlert)
				r.Patch("/alerts/{id}", cfg.SyncHandler.UpdateAlert)
				r.Delete("/alerts/{id}", cfg.SyncHandler.DeleteAlert)

				r.Post("/treatments", cfg.SyncHandler.CreateTreatment)
				r.Patch("/treatments/{id}", cfg.SyncHandler.UpdateTreatment)
				r.Delete("/treatments/{id}", cfg.SyncHandler.DeleteTreatment)

				r.Put("/settings/thresholds", cfg.SyncHandler.UpdateThresholds)
			})
		}
		if cfg.LiveHandler != nil {
			private.Get("/sync/live", cfg.LiveHandler.Serve)
		}
	})

	return r
}
