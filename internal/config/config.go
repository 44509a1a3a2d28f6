// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig describes how to reach the borrowing store.
// URL, when set, wins over the individual fields.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host" validate:"required_without=URL"`
	Port           int           `koanf:"port" validate:"min=0,max=65535"`
	Name           string        `koanf:"name" validate:"required_without=URL"`
	User           string        `koanf:"user" validate:"required_without=URL"`
	Password       string        `koanf:"password"`
	SSLMode        string        `koanf:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`

	// MaxIdleConns is 0 by default: every query dials its own connection and
	// closes it afterwards.
	MaxIdleConns int `koanf:"max_idle_conns" validate:"min=0"`
}

// SecurityConfig holds the shared secret and browser-facing settings.
type SecurityConfig struct {
	// APIKey empty disables the X-API-KEY check (development mode).
	APIKey            string        `koanf:"api_key"`
	CORSOrigin        string        `koanf:"cors_origin" validate:"required"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Validate checks struct tags and returns the first problem found.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GuardEnabled reports whether requests must present X-API-KEY.
func (s SecurityConfig) GuardEnabled() bool {
	return s.APIKey != ""
}
