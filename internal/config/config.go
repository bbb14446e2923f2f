// Package config provides configuration management for the TerraVue gateway.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Processor ProcessorConfig `envPrefix:"PROCESSOR_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Results   ResultsConfig   `envPrefix:"RESULT_"`
	Catalog   CatalogConfig   `envPrefix:"CATALOG_"`
	Features  FeatureConfig   `envPrefix:"FEATURE_"`
	Logging   LoggingConfig   `envPrefix:"LOG_"`

	// SatellitesDir optionally overrides the embedded satellite registry
	// with JSON definitions loaded from a directory.
	SatellitesDir string `env:"SATELLITES_DIR" envDefault:""`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// ProcessorConfig contains processing backend client configuration.
type ProcessorConfig struct {
	// Variant selects the upstream client: "rest", "legacy" or "demo".
	Variant string        `env:"VARIANT" envDefault:"rest"`
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"120s"`
	// StaticBase is prepended to /static/ map URLs returned by the
	// processor. Empty means use BaseURL.
	StaticBase string `env:"STATIC_BASE" envDefault:""`
}

// AuthConfig contains token verification configuration. The gateway only
// verifies tokens; issuance belongs to the external auth service.
type AuthConfig struct {
	Required  bool   `env:"REQUIRED" envDefault:"false"`
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
}

// ResultsConfig controls retention of per-session analysis results.
type ResultsConfig struct {
	TTL           time.Duration `env:"TTL" envDefault:"1h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

// CatalogConfig contains catalog metadata configuration.
type CatalogConfig struct {
	BaseURL     string `env:"BASE_URL"` // Public-facing URL (required)
	Title       string `env:"TITLE" envDefault:"TerraVue Analysis Gateway"`
	Description string `env:"DESCRIPTION" envDefault:"Satellite imagery analysis gateway for NDVI, LST and SAR time series"`
}

// FeatureConfig contains feature flags.
type FeatureConfig struct {
	// DemoFallback reruns a failed submission against the demo backend
	// so the client still gets a result, flagged as synthetic.
	DemoFallback    bool `env:"DEMO_FALLBACK" envDefault:"true"`
	EnableAssistant bool `env:"ENABLE_ASSISTANT" envDefault:"true"`
	EnableDocs      bool `env:"ENABLE_DOCS" envDefault:"true"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	switch c.Processor.Variant {
	case "rest", "legacy", "demo":
	default:
		return fmt.Errorf("processor variant must be 'rest', 'legacy' or 'demo', got %q", c.Processor.Variant)
	}

	if c.Processor.Variant != "demo" && c.Processor.BaseURL == "" {
		return fmt.Errorf("processor base URL is required for the %s variant", c.Processor.Variant)
	}

	if c.Processor.Timeout <= 0 {
		return fmt.Errorf("processor timeout must be positive, got %s", c.Processor.Timeout)
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required when auth is required")
	}

	if c.Results.TTL <= 0 {
		return fmt.Errorf("result TTL must be positive, got %s", c.Results.TTL)
	}

	if c.Results.SweepInterval <= 0 {
		return fmt.Errorf("result sweep interval must be positive, got %s", c.Results.SweepInterval)
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MapStaticBase returns the base URL used to resolve relative /static/ map
// URLs returned by the processor.
func (p *ProcessorConfig) MapStaticBase() string {
	if p.StaticBase != "" {
		return p.StaticBase
	}
	return p.BaseURL
}
