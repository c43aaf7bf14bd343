package wsnotify

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const EnvironmentProduction = "production"

// Config holds everything needed to build a Client. Use LoadConfig to read it from the
// environment, or DefaultConfig and set the fields by hand.
type Config struct {
	// Environment selects between LocalEndpoint and HostedEndpoint when Endpoint is empty.
	Environment    string `env:"WSNOTIFY_ENV" envDefault:"development"`
	Endpoint       string `env:"WSNOTIFY_ENDPOINT"`
	LocalEndpoint  string `env:"WSNOTIFY_LOCAL_ENDPOINT" envDefault:"ws://localhost:8000"`
	HostedEndpoint string `env:"WSNOTIFY_HOSTED_ENDPOINT"`

	BaseDelay       time.Duration `env:"WSNOTIFY_RECONNECT_BASE_DELAY" envDefault:"1s"`
	MaxAttempts     int           `env:"WSNOTIFY_RECONNECT_MAX_ATTEMPTS" envDefault:"5"`
	MaxDisplayDelay time.Duration `env:"WSNOTIFY_RECONNECT_MAX_DISPLAY_DELAY" envDefault:"3s"`

	PingInterval     time.Duration `env:"WSNOTIFY_PING_INTERVAL" envDefault:"0s"`
	HandshakeTimeout time.Duration `env:"WSNOTIFY_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"WSNOTIFY_LOG_LEVEL" envDefault:"info"`
}

func DefaultConfig() Config {
	return Config{
		Environment:      "development",
		LocalEndpoint:    "ws://localhost:8000",
		BaseDelay:        DefaultBaseDelay,
		MaxAttempts:      DefaultMaxAttempts,
		MaxDisplayDelay:  DefaultMaxDisplayDelay,
		HandshakeTimeout: 10 * time.Second,
		LogLevel:         "info",
	}
}

// LoadConfig reads the configuration from the environment, after loading a .env file from the
// working directory if there is one.
func LoadConfig() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	return cfg, cfg.Validate()
}

// ResolveEndpoint returns Endpoint if set, HostedEndpoint in production, LocalEndpoint otherwise.
func (c Config) ResolveEndpoint() string {
	switch {
	case c.Endpoint != "":
		return c.Endpoint
	case c.Environment == EnvironmentProduction && c.HostedEndpoint != "":
		return c.HostedEndpoint
	default:
		return c.LocalEndpoint
	}
}

func (c Config) ReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:       c.BaseDelay,
		MaxAttempts:     c.MaxAttempts,
		MaxDisplayDelay: c.MaxDisplayDelay,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ResolveEndpoint() == "":
		return errors.Wrap(ErrInvalidConfig, "no endpoint configured")
	case c.BaseDelay <= 0:
		return errors.Wrapf(ErrInvalidConfig, "reconnect base delay must be positive, got %s", c.BaseDelay)
	case c.MaxAttempts < 0:
		return errors.Wrapf(ErrInvalidConfig, "reconnect max attempts must not be negative, got %d", c.MaxAttempts)
	case c.PingInterval < 0:
		return errors.Wrapf(ErrInvalidConfig, "ping interval must not be negative, got %s", c.PingInterval)
	}
	return nil
}
