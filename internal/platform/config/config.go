package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	SessionTTL        time.Duration `env:"SESSION_TTL" default:"24h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" default:"session-id"`

	GitHubAppID         int64         `env:"GITHUB_APP_ID"`
	GitHubAppPrivateKey string        `env:"GITHUB_APP_PRIVATE_KEY"`
	GitHubAPIURL        string        `env:"GITHUB_API_URL" default:"https://api.github.com/"`
	GitHubTimeout       time.Duration `env:"GITHUB_TIMEOUT" default:"10s"`
	GitHubRateLimit     float64       `env:"GITHUB_RATE_LIMIT" default:"2"`
	GitHubRateBurst     int           `env:"GITHUB_RATE_BURST" default:"5"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	cfg, err := LoadPartial()
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPartial reads the environment without checking required variables.
// Tools that touch only some backends check what they use via Require.
func LoadPartial() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Keys pasted into a single-line env var arrive with literal "\n".
	cfg.GitHubAppPrivateKey = strings.ReplaceAll(cfg.GitHubAppPrivateKey, `\n`, "\n")

	return &cfg, nil
}

// Require reports the first of the named variables that is unset.
func (c *Config) Require(names ...string) error {
	values := map[string]bool{
		"DATABASE_URL":           c.DatabaseURL != "",
		"REDIS_URL":              c.RedisURL != "",
		"GITHUB_APP_ID":          c.GitHubAppID > 0,
		"GITHUB_APP_PRIVATE_KEY": c.GitHubAppPrivateKey != "",
	}
	for _, name := range names {
		if set, known := values[name]; known && !set {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if err := cfg.Require("DATABASE_URL", "REDIS_URL", "GITHUB_APP_PRIVATE_KEY", "GITHUB_APP_ID"); err != nil {
		return err
	}
	if cfg.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if cfg.GitHubTimeout <= 0 {
		return errors.New("GITHUB_TIMEOUT must be positive")
	}
	if cfg.SessionCookieName == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}

	if cfg.IsProduction() {
		mode := sslMode(cfg.DatabaseURL)
		if mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
