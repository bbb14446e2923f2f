// TerraVue gateway server entry point
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/terravue/terravue/internal/api"
	"github.com/terravue/terravue/internal/config"
	"github.com/terravue/terravue/internal/maps"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/internal/results"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("starting terravue gateway",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"processor", cfg.Processor.Variant,
	)

	// Load satellite definitions
	satellites, err := loadSatellites(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded satellites", "count", satellites.Count())

	// Per-session result retention
	store := results.NewStore(cfg.Results.TTL, cfg.Results.SweepInterval)
	defer store.Stop()
	logger.Info("initialized result store", "ttl", cfg.Results.TTL, "sweep_interval", cfg.Results.SweepInterval)

	// Create the processing backend based on configuration. The legacy
	// generation carries its own /demo fallback; the rest variant falls back
	// to locally generated demo data.
	var backend, fallback processor.Backend
	switch cfg.Processor.Variant {
	case "legacy":
		client := processor.NewLegacyClient(cfg.Processor.BaseURL, cfg.Processor.Timeout).WithLogger(logger)
		backend = client
		fallback = client.Demo()
		logger.Info("using legacy processing backend", "base_url", cfg.Processor.BaseURL)
	case "demo":
		backend = processor.NewDemoBackend()
		logger.Info("using demo processing backend")
	default:
		backend = processor.NewClient(cfg.Processor.BaseURL, cfg.Processor.Timeout).WithLogger(logger)
		fallback = processor.NewDemoBackend()
		logger.Info("using rest processing backend", "base_url", cfg.Processor.BaseURL)
	}

	requester := maps.NewRequester(backend, cfg.Processor.MapStaticBase()).WithLogger(logger)

	handlers := api.NewHandlers(cfg, backend, satellites, store, requester, logger)
	if cfg.Features.DemoFallback && fallback != nil {
		handlers = handlers.WithDemoFallback(fallback)
	}

	router := api.NewRouter(handlers, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// loadSatellites returns the registry from SatellitesDir when set, else the
// embedded definitions.
func loadSatellites(cfg *config.Config, logger *slog.Logger) (*config.SatelliteRegistry, error) {
	if cfg.SatellitesDir != "" {
		registry, err := config.LoadSatellites(cfg.SatellitesDir)
		if err != nil {
			logger.Warn("failed to load satellites, using embedded registry",
				"dir", cfg.SatellitesDir, "error", err)
		} else {
			return registry, nil
		}
	}
	registry, err := config.DefaultSatellites()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded satellites: %w", err)
	}
	return registry, nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
