package syncer

import (
	"fmt"
	"time"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Config defines configuration for the syncer's history write buffering
type Config struct {
	// Maximum buffered run records; the oldest are dropped beyond this
	MaxBufferedRuns int `toml:"max_buffered_runs"`

	// Batch channel buffer size
	ChannelSize int `toml:"channel_size"`

	// Run flushing - dual mechanism (size OR time triggers flush)
	FlushThreshold int           `toml:"flush_threshold"`
	FlushInterval  time.Duration `toml:"flush_interval"`

	// Upper bound on a single batch write
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// DefaultConfig returns syncer defaults sized for a few runs per hour
func DefaultConfig() Config {
	return Config{
		MaxBufferedRuns: 1000,
		ChannelSize:     16,
		FlushThreshold:  10,
		FlushInterval:   5 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// validateConfig validates syncer configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.MaxBufferedRuns <= 0 {
		return fmt.Errorf("%w: MaxBufferedRuns must be positive, got %d", apperr.ErrConfig, config.MaxBufferedRuns)
	}

	if config.ChannelSize <= 0 {
		return fmt.Errorf("%w: ChannelSize must be positive, got %d", apperr.ErrConfig, config.ChannelSize)
	}

	if config.FlushThreshold <= 0 {
		return fmt.Errorf("%w: FlushThreshold must be positive, got %d", apperr.ErrConfig, config.FlushThreshold)
	}

	if config.FlushThreshold > config.MaxBufferedRuns {
		return fmt.Errorf("%w: FlushThreshold (%d) must not exceed MaxBufferedRuns (%d)",
			apperr.ErrConfig, config.FlushThreshold, config.MaxBufferedRuns)
	}

	if config.FlushInterval <= 0 {
		return fmt.Errorf("%w: FlushInterval must be positive, got %v", apperr.ErrConfig, config.FlushInterval)
	}

	if config.WriteTimeout <= 0 {
		return fmt.Errorf("%w: WriteTimeout must be positive, got %v", apperr.ErrConfig, config.WriteTimeout)
	}

	return nil
}
