package client

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env             string        `env:"PHOTOGRAM_ENV" envDefault:"development"`
	DevURL          string        `env:"API_URL_DEV" envDefault:"http://localhost:3000/api"`
	ProdURL         string        `env:"API_URL_PROD" envDefault:"https://api-production.example.com/api"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	CredentialsPath string        `env:"CREDENTIALS_PATH"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse client config: %w", err)
	}

	if cfg.Env == "" {
		cfg.Env = EnvDevelopment
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("parse client config: unknown environment %q", cfg.Env)
	}

	return cfg, nil
}

// BaseURL is the API root for the configured environment.
func (c Config) BaseURL() string {
	if c.Env == EnvProduction {
		return c.ProdURL
	}

	return c.DevURL
}
