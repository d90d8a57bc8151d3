package scheduler

import (
	"fmt"
	"time"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Config defines the scheduler's timer settings
type Config struct {
	// Minutes between scheduled runs
	IntervalMinutes int32 `toml:"interval_minutes"`

	// How often the loop checks whether the next run is due. This bounds how
	// long Stop takes to be observed.
	PollInterval time.Duration `toml:"poll_interval"`

	// Start the timer as soon as the service comes up
	Autostart bool `toml:"autostart"`
}

// DefaultConfig returns scheduler defaults
func DefaultConfig() Config {
	return Config{
		IntervalMinutes: 60,
		PollInterval:    1 * time.Second,
		Autostart:       false,
	}
}

// Validate returns an apperr.ErrConfig wrapped error if config is unusable
func (c Config) Validate() error {
	if err := validateInterval(c.IntervalMinutes); err != nil {
		return err
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: PollInterval must be positive, got %v", apperr.ErrConfig, c.PollInterval)
	}

	return nil
}

func validateInterval(minutes int32) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: interval must be a positive number of minutes, got %d", apperr.ErrConfig, minutes)
	}
	return nil
}
