// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Classifier drivers.
const (
	ClassifierDriverHTTP    = "http"
	ClassifierDriverLexicon = "lexicon"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Cache (Redis), used for sessions and key resolution
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. A non-zero WriteTimeout must exceed ClassifierTimeout.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Accounts and keys
	DefaultCredits int `env:"DEFAULT_CREDITS" envDefault:"100"`
	APIKeyLimit    int `env:"API_KEY_LIMIT" envDefault:"0"` // 0 = unlimited

	// Sessions
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"moodmeter_session"`

	// Sentiment classifier
	ClassifierDriver      string        `env:"CLASSIFIER_DRIVER" envDefault:"http"`
	ClassifierURL         string        `env:"CLASSIFIER_URL" envDefault:""`
	ClassifierHealthURL   string        `env:"CLASSIFIER_HEALTH_URL" envDefault:""`
	ClassifierToken       string        `env:"CLASSIFIER_TOKEN" envDefault:""`
	ClassifierTimeout     time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"10s"`
	ClassifierLoadTimeout time.Duration `env:"CLASSIFIER_LOAD_TIMEOUT" envDefault:"30s"`

	// Credit reservations
	ReservationTTL           time.Duration `env:"RESERVATION_TTL" envDefault:"2m"`
	ReservationSweepInterval time.Duration `env:"RESERVATION_SWEEP_INTERVAL" envDefault:"30s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks rules that span several fields.
func (c *Config) Validate() error {
	var errs []error

	switch c.ClassifierDriver {
	case ClassifierDriverHTTP:
		if c.ClassifierURL == "" {
			errs = append(errs, errors.New("CLASSIFIER_URL is required when CLASSIFIER_DRIVER=http"))
		}
	case ClassifierDriverLexicon:
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER_DRIVER %q", c.ClassifierDriver))
	}

	if c.DefaultCredits <= 0 {
		errs = append(errs, errors.New("DEFAULT_CREDITS must be positive"))
	}
	if c.APIKeyLimit < 0 {
		errs = append(errs, errors.New("API_KEY_LIMIT must not be negative"))
	}
	if c.ClassifierTimeout <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_TIMEOUT must be positive"))
	}
	if c.WriteTimeout > 0 && c.WriteTimeout <= c.ClassifierTimeout {
		errs = append(errs, errors.New("WRITE_TIMEOUT must exceed CLASSIFIER_TIMEOUT"))
	}
	if c.ReservationTTL <= c.ClassifierTimeout {
		errs = append(errs, errors.New("RESERVATION_TTL must exceed CLASSIFIER_TIMEOUT"))
	}
	if c.ReservationSweepInterval <= 0 {
		errs = append(errs, errors.New("RESERVATION_SWEEP_INTERVAL must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionCookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME must not be empty"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or the result is invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
