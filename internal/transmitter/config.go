package transmitter

import (
	"fmt"
	"time"

	"github.com/livinlefevreloca/biosync/internal/apperr"
)

// Config defines how the remote punch API is reached
type Config struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// Backend batch inserts can be slow; keep this generous
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns transmitter defaults. Endpoint and credentials
// have no defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 300 * time.Second,
	}
}

// Validate reports a configuration error when the endpoint or credentials
// are missing.
func (c Config) Validate() error {
	if c.URL == "" || c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: API configuration missing/incomplete (url, username and password are required)", apperr.ErrConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: api timeout must be positive, got %v", apperr.ErrConfig, c.Timeout)
	}
	return nil
}
