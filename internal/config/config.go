// Package config provides centralized configuration management for the cleaner.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Clean    CleanConfig
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// CleanConfig holds pipeline settings.
type CleanConfig struct {
	// Input is the source file path (default: data.csv)
	Input string `env:"CLEAN_INPUT" default:"data.csv"`

	// Output is the destination file path (default: applied_changes_data.csv)
	Output string `env:"CLEAN_OUTPUT" default:"applied_changes_data.csv"`

	// Delimiter is the single-character field separator (default: ,)
	Delimiter string `env:"CLEAN_DELIMITER" default:","`

	// MaxFileSize is the maximum source size in bytes (default: 100MB)
	MaxFileSize int64 `env:"CLEAN_MAX_FILE_SIZE" default:"104857600"`

	// Timeout bounds a whole run (default: 5m)
	Timeout time.Duration `env:"CLEAN_TIMEOUT" default:"5m"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxConcurrentRuns is the number of uploads cleaned in parallel (default: 4)
	MaxConcurrentRuns int `env:"SERVER_MAX_CONCURRENT_RUNS" default:"4"`

	// RunWait is how long an upload waits for a free run slot (default: 30s)
	RunWait time.Duration `env:"SERVER_RUN_WAIT" default:"30s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key on /api
	// routes. Empty disables the check.
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// DatabaseConfig holds the optional run history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Run history is disabled when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`
}

// Enabled reports whether a run history database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics in serve mode (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`
}

// Comma returns the configured delimiter as a rune, or ',' if it is not a
// single character. "tab" and `\t` select a tab.
func (c *CleanConfig) Comma() rune {
	switch c.Delimiter {
	case "tab", `\t`:
		return '\t'
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError || size != len(c.Delimiter) {
		return ','
	}
	return r
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
