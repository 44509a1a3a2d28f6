package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides where the YAML file is looked up.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are tried in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envMappings maps the environment variables the service understands to
// koanf paths. Anything not listed is ignored.
var envMappings = map[string]string{
	"HTTP_ADDR":             "server.addr",
	"HTTP_SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"DATABASE_URL":          "database.url",
	"DB_HOST":               "database.host",
	"DB_PORT":               "database.port",
	"DB_NAME":               "database.name",
	"DB_USER":               "database.user",
	"DB_PASSWORD":           "database.password",
	"DB_SSLMODE":            "database.sslmode",
	"DB_CONNECT_TIMEOUT":    "database.connect_timeout",
	"DB_MAX_IDLE_CONNS":     "database.max_idle_conns",
	"API_KEY":               "security.api_key",
	"CORS_ORIGIN":           "security.cors_origin",
	"RATE_LIMIT_REQUESTS":   "security.rate_limit_requests",
	"RATE_LIMIT_WINDOW":     "security.rate_limit_window",
	"LOG_LEVEL":             "logging.level",
	"LOG_FORMAT":            "logging.format",
	"METRICS_ENABLED":       "metrics.enabled",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "postgres",
			User:           "postgres",
			SSLMode:        "require",
			ConnectTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigin:      "*",
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file if one exists,
// then environment variables. A .env file in the working directory is read
// into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secondsEnvVars may be given as a bare number of seconds, libpq style.
var secondsEnvVars = map[string]bool{
	"DB_CONNECT_TIMEOUT": true,
}

// envTransformFunc returns the koanf path for a known variable, or "" so the
// env provider skips it. Bare integers in secondsEnvVars become "<n>s".
func envTransformFunc(key, value string) (string, any) {
	key = strings.ToUpper(key)
	path, ok := envMappings[key]
	if !ok {
		return "", nil
	}
	if secondsEnvVars[key] {
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return path, strings.TrimSpace(value) + "s"
		}
	}
	return path, value
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
