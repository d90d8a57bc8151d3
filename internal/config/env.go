package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Environment variables recognized on top of the config file
const (
	EnvDBConnectionString = "DB_CONNECTION_STRING"
	EnvDBServer           = "DB_SERVER"
	EnvDBDatabase         = "DB_DATABASE"
	EnvDBUser             = "DB_USER"
	EnvDBPassword         = "DB_PASSWORD"
	EnvAPIURL             = "TP_API_URL"
	EnvAPIUsername        = "API_USERNAME"
	EnvAPIPassword        = "API_PASSWORD"
	EnvAPITimeoutSeconds  = "API_TIMEOUT_SECONDS"
	EnvLogPath            = "LOG_PATH"
	EnvLogLevel           = "LOG_LEVEL"
	EnvSyncInterval       = "SYNC_INTERVAL_MINUTES"
)

// DefaultEnvFile is loaded when no env file is given and it exists
const DefaultEnvFile = "config/.env"

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden. An empty path falls back to
// DefaultEnvFile, which may be absent; an explicit path must exist.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return fmt.Errorf("%w: env file does not exist: %s", apperr.ErrConfig, path)
		}
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to load %s: %w", apperr.ErrConfig, path, err)
	}
	return nil
}

// ApplyEnv overrides file values with any set environment variables
func (c *Config) ApplyEnv() error {
	setString(&c.Source.DSN, EnvDBConnectionString)
	setString(&c.Source.Server, EnvDBServer)
	setString(&c.Source.Database, EnvDBDatabase)
	setString(&c.Source.User, EnvDBUser)
	setString(&c.Source.Password, EnvDBPassword)

	setString(&c.API.URL, EnvAPIURL)
	setString(&c.API.Username, EnvAPIUsername)
	setString(&c.API.Password, EnvAPIPassword)

	if value := os.Getenv(EnvAPITimeoutSeconds); value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", apperr.ErrConfig, EnvAPITimeoutSeconds, value)
		}
		c.API.Timeout = time.Duration(seconds) * time.Second
	}

	setString(&c.Logging.Path, EnvLogPath)
	setString(&c.Logging.Level, EnvLogLevel)

	if value := os.Getenv(EnvSyncInterval); value != "" {
		minutes, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", apperr.ErrConfig, EnvSyncInterval, value)
		}
		c.Scheduler.IntervalMinutes = int32(minutes)
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
