package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	Env               string        `mapstructure:"ENV"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	StorageBackend    string        `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	PopularCacheTTL   time.Duration `mapstructure:"POPULAR_CACHE_TTL"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
	SeedReferenceData bool          `mapstructure:"SEED_REFERENCE_DATA"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"WRITE_TIMEOUT"`
}

var defaults = map[string]any{
	"ENV":                 "local",
	"HTTP_ADDR":           ":8080",
	"STORAGE_BACKEND":     BackendMemory,
	"DATABASE_URL":        "",
	"REDIS_URL":           "",
	"POPULAR_CACHE_TTL":   time.Minute,
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
	"SEED_REFERENCE_DATA": true,
	"SHUTDOWN_TIMEOUT":    10 * time.Second,
	"READ_TIMEOUT":        10 * time.Second,
	"WRITE_TIMEOUT":       time.Duration(0),
}

// Load loads the configuration from a .env file in dir (if present) and environment variables.
// Environment variables win over the file.
func Load(dir string) (*Config, error) {
	const op = "config/Load"

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Defaults also make AutomaticEnv see keys that are absent from the file.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%s: unable to decode into struct: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Validate checks the combinations Load cannot express as defaults.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	if c.PopularCacheTTL <= 0 {
		return errors.New("POPULAR_CACHE_TTL must be positive")
	}
	return nil
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}
