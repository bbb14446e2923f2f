package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Add middleware stack
	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse) // Add X-Request-ID to response headers
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5)) // Gzip compression
	r.Use(ContentTypeJSON)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", SessionHeader},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Owner resolution: bearer token, session header or client address
	r.Use(Owner(h.cfg.Auth.JWTSecret, h.cfg.Auth.Required))

	// Health and engine status
	r.Get("/health", h.Health)
	r.Get("/status", h.Status)

	r.Route("/api/v1", func(r chi.Router) {
		// Analyses
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", h.SubmitAnalysis)
			r.Get("/current", h.CurrentAnalysis)

			r.Route("/{analysisId}", func(r chi.Router) {
				r.Get("/", h.GetAnalysis)
				r.Get("/table", h.Table)
				r.Post("/table/sort", h.SortTable)
				r.Post("/table/page", h.PageTable)
				r.Get("/chart", h.Chart)
				r.Get("/chart.html", h.ChartHTML)
				r.Get("/plot.png", h.PlotPNG)
				r.Get("/table.csv", h.TableCSV)
				r.Get("/scenes", h.Scenes)
			})
		})

		// Maps
		r.Route("/maps", func(r chi.Router) {
			r.Post("/", h.CreateMap)
			r.Post("/retry", h.RetryMap)
		})

		// Assistant passthrough
		r.Post("/assistant", h.Assistant)

		// Satellite catalog
		r.Route("/satellites", func(r chi.Router) {
			r.Get("/", h.Satellites)
			r.Get("/{satelliteId}", h.Satellite)
			r.Get("/{satelliteId}/parameters", h.SatelliteParameters)
		})
	})

	// API documentation (if enabled)
	if h.cfg.Features.EnableDocs {
		r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
			w.Header().Set("Cache-Control", "public, max-age=60")
			w.Write(openapiYAML)
		})
		r.Mount("/swagger", httpSwagger.Handler(
			httpSwagger.URL("/api/openapi.yaml"),
		))
	}

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	// 405 handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
