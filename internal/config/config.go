package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Storage backend selectors.
const (
	BackendPostgres = "postgres"
	BackendGist     = "gist"
)

// Config holds application configuration, loaded once at startup and never
// mutated afterwards.
type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// GoogleClientID is the OAuth client ID that incoming Sign-In credentials
	// must be issued for.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// JWTSecret signs session tokens. Its absence is not fatal at startup;
	// protected endpoints report it as a configuration error per request.
	JWTSecret string `env:"JWT_SECRET"`

	// StorageBackend selects the drawing store: "postgres" (canonical) or
	// "gist" (degraded, see internal/giststore).
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	GitHubToken    string `env:"GITHUB_TOKEN"`

	// RedisURL, when set, backs the login rate limiter. Unset means the
	// limiter keeps its counters in process memory.
	RedisURL       string `env:"REDIS_URL"`
	LoginRateLimit string `env:"LOGIN_RATE_LIMIT" envDefault:"10-M"`

	EnableHSTS      bool `env:"ENABLE_HSTS" envDefault:"false"`
	ServerDebugMode bool `env:"SERVER_DEBUG_MODE" envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch cfg.StorageBackend {
	case BackendPostgres, BackendGist:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q (must be %q or %q)", cfg.StorageBackend, BackendPostgres, BackendGist)
	}

	return cfg, nil
}
