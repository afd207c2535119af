package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/refill-ledger/ledger/internal/api"
)

// Config holds runtime configuration for the service, worker and CLI.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"RATE_LIMIT" default:"120"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	APIURL      string        `envconfig:"LEDGER_API_URL" default:"http://localhost:3000/api"`
	APITimeout  time.Duration `envconfig:"LEDGER_API_TIMEOUT" default:"10s"`
	APIUsername string        `envconfig:"LEDGER_API_USERNAME"`
	APIPassword string        `envconfig:"LEDGER_API_PASSWORD"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	TokenFile string `envconfig:"TOKEN_FILE"`

	// TestMode makes the binaries exit before touching the network.
	TestMode bool `envconfig:"LEDGER_TEST_MODE"`
}

// LoadConfig reads a .env file when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if os.Getenv("LEDGER_API_URL") == "" {
		if legacy := os.Getenv("VITE_API_URL"); legacy != "" {
			cfg.APIURL = legacy
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid LEDGER_API_URL %q", c.APIURL)
	}
	if c.APIUsername != "" && c.APIPassword == "" {
		return errors.New("LEDGER_API_PASSWORD must be provided with LEDGER_API_USERNAME")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// ServiceCredentials returns the service account the server and worker log
// in with, or nil when none is configured.
func (c *Config) ServiceCredentials() *api.Credentials {
	if c == nil || c.APIUsername == "" {
		return nil
	}
	return &api.Credentials{Username: c.APIUsername, Password: c.APIPassword}
}

// TokenPath resolves where the CLI keeps its session.
func (c *Config) TokenPath() string {
	if c != nil && c.TokenFile != "" {
		return c.TokenFile
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "ledger" + string(os.PathSeparator) + "tokens.json"
	}
	return ".ledger-tokens.json"
}
