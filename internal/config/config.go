// Package config handles application configuration from environment variables
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// DatabaseURL switches persistence from the file store to postgres
	// when set.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// DefaultModel is used when the session has not selected one.
	DefaultModel string `env:"DEFAULT_MODEL" envDefault:"deepseek-r1:8b"`

	OllamaURL    string `env:"OLLAMA_URL" envDefault:"http://localhost:11434/api/generate"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	MLXCommand   string `env:"MLX_COMMAND" envDefault:"mlx_lm.generate"`

	Garmin GarminConfig `envPrefix:"GARMIN_"`
}

// GarminConfig holds the Garmin Connect OAuth application credentials.
type GarminConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// HasGarmin returns true if Garmin sync credentials are configured.
func (c *Config) HasGarmin() bool {
	return c.Garmin.ClientID != "" && c.Garmin.ClientSecret != ""
}

// HasPostgres returns true if the postgres store should be used.
func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}
