package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/logging"
	"github.com/livinlefevreloca/biosync/internal/scheduler"
	"github.com/livinlefevreloca/biosync/internal/source"
	"github.com/livinlefevreloca/biosync/internal/syncer"
	"github.com/livinlefevreloca/biosync/internal/transmitter"
)

// Config represents the application configuration
type Config struct {
	Source    db.Config          `toml:"source"`
	Procedure source.Config      `toml:"procedure"`
	API       transmitter.Config `toml:"api"`
	Scheduler scheduler.Config   `toml:"scheduler"`
	History   HistoryConfig      `toml:"history"`
	Syncer    syncer.Config      `toml:"syncer"`
	HTTP      HTTPConfig         `toml:"http"`
	Metrics   MetricsConfig      `toml:"metrics"`
	Logging   logging.Config     `toml:"logging"`
}

// HistoryConfig holds the local run history store settings
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
}

// DB returns the connection settings for the history store. A single
// connection keeps sqlite writers from contending.
func (h HistoryConfig) DB() db.Config {
	return db.Config{
		Driver:       h.Driver,
		DSN:          h.DSN,
		MaxOpenConns: 1,
	}
}

// HTTPConfig holds HTTP control surface settings
type HTTPConfig struct {
	Enabled         bool          `toml:"enabled"`
	Address         string        `toml:"address"`
	Port            int           `toml:"port"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Addr returns the listen address
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// MetricsConfig holds metrics/monitoring settings. Metrics are served on
// the HTTP control surface.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: db.Config{
			Driver:          "sqlserver",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Procedure: source.DefaultConfig(),
		API:       transmitter.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		History: HistoryConfig{
			Enabled: true,
			Driver:  "sqlite3",
			DSN:     "biosync.db",
		},
		Syncer: syncer.DefaultConfig(),
		HTTP: HTTPConfig{
			Enabled:         true,
			Address:         "0.0.0.0",
			Port:            5000,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: config file does not exist: %s", apperr.ErrConfig, path)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %w", apperr.ErrConfig, err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. .env file (if present) and environment variables
// 4. Command-line flags (handled by caller)
func LoadConfig(configPath, envPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if err := LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid. Source and API settings
// are checked when the components are built so that check-db works without
// API credentials.
func (c *Config) Validate() error {
	if c.Source.Driver == "" {
		return fmt.Errorf("%w: source driver must be specified", apperr.ErrConfig)
	}

	if err := c.Procedure.Validate(); err != nil {
		return err
	}

	if err := c.Scheduler.Validate(); err != nil {
		return err
	}

	if c.History.Enabled {
		if c.History.Driver == "" || c.History.DSN == "" {
			return fmt.Errorf("%w: history driver and dsn must be specified when history is enabled", apperr.ErrConfig)
		}
	}

	// HTTP validation
	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("%w: HTTP port must be between 1 and 65535", apperr.ErrConfig)
		}
		if c.HTTP.ShutdownTimeout <= 0 {
			return fmt.Errorf("%w: HTTP shutdown_timeout must be positive", apperr.ErrConfig)
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		return fmt.Errorf("%w: metrics path must start with '/', got %q", apperr.ErrConfig, c.Metrics.Path)
	}

	// Logging validation
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: invalid log format: %s (must be text or json)", apperr.ErrConfig, c.Logging.Format)
	}

	return nil
}
