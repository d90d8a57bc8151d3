// Package logging builds the slog logger shared by every component and the
// sinks it writes to: stdout, a dated log file, and an in-memory ring of
// recent lines served to operators.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging settings
type Config struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`

	// Directory for Log_YYYY-MM-DD.txt files; empty disables the file sink
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`

	// Number of recent lines kept in memory
	RingSize int `toml:"ring_size"`
}

// DefaultConfig returns logging defaults
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Path:       "./Logs/",
		MaxSizeMB:  50,
		MaxBackups: 10,
		MaxAgeDays: 30,
		RingSize:   500,
	}
}

// Logger bundles the slog logger with the sinks it owns
type Logger struct {
	*slog.Logger
	ring  *Ring
	files *DailyFile
}

// New creates a logger writing to out, to the configured log directory and
// to an in-memory ring.
func New(cfg Config, out io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	ringSize := cfg.RingSize
	if ringSize <= 0 {
		ringSize = DefaultConfig().RingSize
	}
	ring := NewRing(ringSize)

	writers := []io.Writer{ring}
	if out != nil {
		writers = append(writers, out)
	}

	var files *DailyFile
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		files = NewDailyFile(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		writers = append(writers, files)
	}

	w := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	return &Logger{
		Logger: slog.New(handler),
		ring:   ring,
		files:  files,
	}, nil
}

// Ring returns the in-memory sink of recent lines
func (l *Logger) Ring() *Ring {
	return l.ring
}

// Close releases the file sink
func (l *Logger) Close() error {
	if l.files == nil {
		return nil
	}
	return l.files.Close()
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
	}
	return level, nil
}
