package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the directory service.
// Environment variables are parsed from the DEVSHELF_ prefix.
type Config struct {
	// Build target selects the high-level environment: local, cloud-dev, cloud.
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Derived or override storage driver: auto, sqlite, postgres.
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	// HTTP configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage configuration. An empty SQLite path resolves to the local
	// data directory (~/.devshelf).
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Edge cache. Empty address selects the in-process cache.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// The actor partition served by this deployment.
	Partition string `envconfig:"PARTITION" default:"resources"`

	// Collaborator endpoints. The scraper is required; an empty safety URL
	// installs a permissive checker and an empty search URL disables search.
	ScraperURL string `envconfig:"SCRAPER_URL" default:"http://localhost:8091"`
	SafetyURL  string `envconfig:"SAFETY_URL" default:""`
	SearchURL  string `envconfig:"SEARCH_URL" default:""`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"5"`

	// Upper bound for a single detached background task.
	TaskTimeoutSeconds int `envconfig:"TASK_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to
// "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.Partition == "" {
		return fmt.Errorf("DEVSHELF_PARTITION must not be empty")
	}
	return nil
}

// New creates a Config by parsing environment variables.
// Example: DEVSHELF_HTTP_PORT, DEVSHELF_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DEVSHELF", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("partition", cfg.Partition).
		Str("scraper_url", cfg.ScraperURL).
		Bool("safety_configured", cfg.SafetyURL != "").
		Bool("search_configured", cfg.SearchURL != "").
		Bool("redis_configured", cfg.RedisAddr != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
