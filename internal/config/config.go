package config

import (
	"time"

	"flipview/internal/viewer"
)

// Config contains every tunable of the reader.
// Use DefaultConfig() to get sensible defaults, then override as needed.
type Config struct {
	Viewer viewer.Config

	// Terminal geometry
	CellWidthPx  float64 // Pixel width of one terminal cell (default: 8)
	CellHeightPx float64 // Pixel height of one terminal cell (default: 16)

	// Storage
	DuckDBPath    string        // Reading log database; empty means in-memory (default: "")
	FlushInterval time.Duration // How often the recorder flushes events (default: 5s)

	// Logging
	LogLevel string // debug, info, warn, error (default: "info")
	LogFile  string // Log destination; empty means stderr (default: "")

	// Document loading
	FetchTimeout time.Duration // Timeout for fetching remote documents (default: 30s)
	WatchFile    bool          // Reload the document when the file changes (default: true)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Viewer: viewer.DefaultConfig(),

		CellWidthPx:  8,
		CellHeightPx: 16,

		DuckDBPath:    "",
		FlushInterval: 5 * time.Second,

		LogLevel: "info",
		LogFile:  "",

		FetchTimeout: 30 * time.Second,
		WatchFile:    true,
	}
}

// WithDuckDBPath returns a copy of the config with a modified database path.
func (c Config) WithDuckDBPath(path string) Config {
	c.DuckDBPath = path
	return c
}

// WithLogFile returns a copy of the config with a modified log destination.
func (c Config) WithLogFile(path string) Config {
	c.LogFile = path
	return c
}

// WithLogLevel returns a copy of the config with a modified log level.
func (c Config) WithLogLevel(level string) Config {
	c.LogLevel = level
	return c
}

// WithFlipDuration returns a copy of the config with a modified page-flip duration.
func (c Config) WithFlipDuration(d time.Duration) Config {
	c.Viewer.FlipDuration = d
	return c
}

// WithDevicePixelRatio returns a copy of the config with a modified baseline density.
func (c Config) WithDevicePixelRatio(dpr float64) Config {
	c.Viewer.DevicePixelRatio = dpr
	return c
}

// WithWatchFile returns a copy of the config with file watching enabled/disabled.
func (c Config) WithWatchFile(enabled bool) Config {
	c.WatchFile = enabled
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if err := c.Viewer.Validate(); err != nil {
		return &ConfigError{Field: "Viewer", Message: err.Error()}
	}
	if c.CellWidthPx <= 0 {
		return &ConfigError{Field: "CellWidthPx", Message: "must be positive"}
	}
	if c.CellHeightPx <= 0 {
		return &ConfigError{Field: "CellHeightPx", Message: "must be positive"}
	}
	if c.FlushInterval <= 0 {
		return &ConfigError{Field: "FlushInterval", Message: "must be positive"}
	}
	if c.FetchTimeout <= 0 {
		return &ConfigError{Field: "FetchTimeout", Message: "must be positive"}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "LogLevel", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
