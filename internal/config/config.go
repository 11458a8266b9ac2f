package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// StorageBackend selects where persisted client state lives.
type StorageBackend string

const (
	StorageFile  StorageBackend = "file"
	StorageRedis StorageBackend = "redis"
)

// Config holds application configuration
type Config struct {
	APIURL string `env:"HOMEHERO_API_URL"`

	FirebaseAPIKey    string `env:"HOMEHERO_FIREBASE_API_KEY"`
	FirebaseProjectID string `env:"HOMEHERO_FIREBASE_PROJECT_ID"`
	IdentityURL       string `env:"HOMEHERO_IDENTITY_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	SecureTokenURL    string `env:"HOMEHERO_SECURE_TOKEN_URL" envDefault:"https://securetoken.googleapis.com/v1"`
	JWKSURL           string `env:"HOMEHERO_JWKS_URL" envDefault:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`

	GoogleClientID     string `env:"HOMEHERO_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"HOMEHERO_GOOGLE_CLIENT_SECRET"`
	CallbackAddr       string `env:"HOMEHERO_CALLBACK_ADDR" envDefault:"127.0.0.1:8765"`

	Storage       StorageBackend `env:"HOMEHERO_STORAGE" envDefault:"file"`
	StateFile     string         `env:"HOMEHERO_STATE_FILE"`
	RedisURL      string         `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	StoragePrefix string         `env:"HOMEHERO_STORAGE_PREFIX" envDefault:"homehero"`

	DefaultTheme string        `env:"HOMEHERO_THEME" envDefault:"light"`
	BackendRate  string        `env:"BACKEND_RATE" envDefault:"20-S"`
	HTTPTimeout  time.Duration `env:"HOMEHERO_HTTP_TIMEOUT" envDefault:"15s"`

	DebugMode    bool   `env:"DEBUG_MODE" envDefault:"false"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"console"`
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first; variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.StateFile == "" {
		cfg.StateFile = defaultStateFile()
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("HOMEHERO_API_URL is required")
	}

	if c.FirebaseAPIKey == "" {
		return fmt.Errorf("HOMEHERO_FIREBASE_API_KEY is required")
	}

	switch c.Storage {
	case StorageFile, StorageRedis:
	default:
		return fmt.Errorf("invalid HOMEHERO_STORAGE: %q (must be 'file' or 'redis')", c.Storage)
	}

	switch c.DefaultTheme {
	case "light", "dark":
	default:
		return fmt.Errorf("invalid HOMEHERO_THEME: %q (must be 'light' or 'dark')", c.DefaultTheme)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q (must be 'json' or 'console')", c.LogFormat)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HOMEHERO_HTTP_TIMEOUT must be positive")
	}

	return nil
}

// FederatedEnabled reports whether Google sign-in is configured.
func (c *Config) FederatedEnabled() bool {
	return c.GoogleClientID != ""
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".homehero.yaml"
	}
	return dir + string(os.PathSeparator) + "homehero" + string(os.PathSeparator) + "state.yaml"
}
