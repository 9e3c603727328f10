// Package config loads the service configuration.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file and QUERYSTUDY_ environment variables. A double underscore in a
// variable name separates nesting levels, so QUERYSTUDY_DATABASE__URL sets
// database.url. A .env file in the working directory is loaded into the
// environment first.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "QUERYSTUDY_"

// Config is the root configuration object.
type Config struct {
	Env      string         `koanf:"env" validate:"required,oneof=local dev test staging prod"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// ServerConfig groups settings for the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains the PostgreSQL connection string and pool tuning.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=0"`
	MinConns        int32         `koanf:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" validate:"gte=0"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
	// IdentityMapSize bounds each client's identity map. Zero keeps it unbounded.
	IdentityMapSize int `koanf:"identity_map_size" validate:"gte=0"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level string `koanf:"level" validate:"required,oneof=trace debug info warn error"`
	// Format is "console" or "json". Empty picks console for local and dev.
	Format string `koanf:"format" validate:"omitempty,oneof=console json"`
	// SQLLevel enables pgx statement logging at that level.
	SQLLevel string `koanf:"sql_level" validate:"omitempty,oneof=trace debug info warn error none"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

// TracingConfig controls OpenTelemetry spans for ORM statements.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Env: "local",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true, Namespace: "querystudy"},
		Tracing: TracingConfig{SampleRatio: 1},
	}
}

// Load reads the configuration. path names an optional YAML file and is
// skipped when empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its validate tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns && cfg.Database.MaxConns > 0 {
		return fmt.Errorf("config: database.min_conns (%d) exceeds database.max_conns (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	return nil
}

// Development reports whether the environment favours human-readable output.
func (c *Config) Development() bool {
	return c.Env == "local" || c.Env == "dev" || c.Env == "test"
}
