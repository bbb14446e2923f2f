// Package server provides a public API for embedding the TerraVue gateway.
package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/terravue/terravue/internal/api"
	"github.com/terravue/terravue/internal/config"
	"github.com/terravue/terravue/internal/maps"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/internal/results"
)

// Variant specifies which processing backend client to use.
type Variant string

const (
	// VariantREST talks to the camelCase REST processing API.
	VariantREST Variant = "rest"
	// VariantLegacy talks to the snake_case legacy processing API.
	VariantLegacy Variant = "legacy"
	// VariantDemo serves synthetic results without an upstream engine.
	VariantDemo Variant = "demo"
)

// Options configures the TerraVue gateway.
type Options struct {
	// BaseURL is the public-facing URL for self-referential links (required).
	// Example: "https://api.example.com/terravue" or "http://localhost:8080"
	BaseURL string

	// Processor specifies which processing backend client to use.
	// Default: VariantREST
	Processor Variant

	// ProcessorURL is the processing backend base URL.
	// Default: "http://localhost:5000"
	ProcessorURL string

	// StaticBase is the host relative /static/ map URLs are resolved against.
	// Default: ProcessorURL
	StaticBase string

	// Timeout is the upstream request timeout.
	// Default: 120s
	Timeout time.Duration

	// Title is the catalog title.
	// Default: "TerraVue Analysis Gateway"
	Title string

	// Description is the catalog description.
	// Default: "Satellite imagery analysis gateway for NDVI, LST and SAR time series"
	Description string

	// ResultTTL is how long an idle session's result is retained.
	// Default: 1h
	ResultTTL time.Duration

	// DemoFallback reruns a failed submission against the demo backend so
	// the client still gets a result, flagged as synthetic.
	// Default: false
	DemoFallback bool

	// EnableAssistant exposes the assistant passthrough endpoint.
	// Default: false
	EnableAssistant bool

	// JWTSecret enables bearer-token owner resolution when set.
	JWTSecret string

	// SatellitesDir is the path to satellite definition JSON files.
	// Default: "" (uses the embedded registry)
	SatellitesDir string

	// CORSOrigins lists the origins allowed to call the API.
	// Default: ["*"]
	CORSOrigins []string

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a TerraVue gateway that can be embedded in another application.
type Server struct {
	router chi.Router
	store  *results.Store
}

// New creates a new TerraVue gateway with the given options.
func New(opts Options) (*Server, error) {
	// Apply defaults
	if opts.Processor == "" {
		opts.Processor = VariantREST
	}
	if opts.ProcessorURL == "" {
		opts.ProcessorURL = "http://localhost:5000"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Title == "" {
		opts.Title = "TerraVue Analysis Gateway"
	}
	if opts.Description == "" {
		opts.Description = "Satellite imagery analysis gateway for NDVI, LST and SAR time series"
	}
	if opts.ResultTTL == 0 {
		opts.ResultTTL = time.Hour
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Build internal config
	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins: opts.CORSOrigins,
		},
		Processor: config.ProcessorConfig{
			Variant:    string(opts.Processor),
			BaseURL:    opts.ProcessorURL,
			Timeout:    opts.Timeout,
			StaticBase: opts.StaticBase,
		},
		Auth: config.AuthConfig{
			JWTSecret: opts.JWTSecret,
		},
		Results: config.ResultsConfig{
			TTL:           opts.ResultTTL,
			SweepInterval: 5 * time.Minute,
		},
		Catalog: config.CatalogConfig{
			BaseURL:     opts.BaseURL,
			Title:       opts.Title,
			Description: opts.Description,
		},
		Features: config.FeatureConfig{
			DemoFallback:    opts.DemoFallback,
			EnableAssistant: opts.EnableAssistant,
		},
	}

	// Load satellites
	var satellites *config.SatelliteRegistry
	var err error
	if opts.SatellitesDir != "" {
		satellites, err = config.LoadSatellites(opts.SatellitesDir)
		if err != nil {
			opts.Logger.Warn("failed to load satellites, using embedded registry",
				"dir", opts.SatellitesDir,
				"error", err,
			)
			satellites = nil
		}
	}
	if satellites == nil {
		satellites, err = config.DefaultSatellites()
		if err != nil {
			return nil, err
		}
	}

	// Create result store
	store := results.NewStore(cfg.Results.TTL, cfg.Results.SweepInterval)

	// Create the processing backend. The legacy generation carries its own
	// /demo fallback; the rest variant falls back to locally generated data.
	var backend, fallback processor.Backend
	switch opts.Processor {
	case VariantLegacy:
		client := processor.NewLegacyClient(cfg.Processor.BaseURL, cfg.Processor.Timeout).WithLogger(opts.Logger)
		backend = client
		fallback = client.Demo()
		opts.Logger.Info("using legacy processing backend", "base_url", cfg.Processor.BaseURL)
	case VariantDemo:
		backend = processor.NewDemoBackend()
		opts.Logger.Info("using demo processing backend")
	default:
		backend = processor.NewClient(cfg.Processor.BaseURL, cfg.Processor.Timeout).WithLogger(opts.Logger)
		fallback = processor.NewDemoBackend()
		opts.Logger.Info("using rest processing backend", "base_url", cfg.Processor.BaseURL)
	}

	requester := maps.NewRequester(backend, cfg.Processor.MapStaticBase()).WithLogger(opts.Logger)

	// Create handlers
	handlers := api.NewHandlers(cfg, backend, satellites, store, requester, opts.Logger)
	if opts.DemoFallback && fallback != nil {
		handlers = handlers.WithDemoFallback(fallback)
	}

	// Create router
	router := api.NewRouter(handlers, opts.Logger)

	return &Server{
		router: router,
		store:  store,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops background goroutines (result sweeping).
func (s *Server) Close() {
	if s.store != nil {
		s.store.Stop()
	}
}
