package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

type Config struct {
	Host     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"APP_PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"DEBUG"`

	DB   DatabaseConfig `envPrefix:"DB_"`
	JWT  JWTConfig      `envPrefix:"JWT_"`
	Auth AuthConfig     `envPrefix:"AUTH_"`
	HTTP HTTPConfig     `envPrefix:"HTTP_"`
}

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"postgres"`
	URL    string `env:"URL" envDefault:"user=postgres password=postgres port=5432 dbname=db sslmode=disable"`
}

type JWTConfig struct {
	Secret string        `env:"SECRET_KEY,required"`
	TTL    time.Duration `env:"TTL" envDefault:"12h"`
}

type AuthConfig struct {
	BcryptCost int     `env:"BCRYPT_COST" envDefault:"12"`
	RateLimit  float64 `env:"RATE_LIMIT" envDefault:"5"`
	RateBurst  int     `env:"RATE_BURST" envDefault:"10"`
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"20s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("parse config: JWT_SECRET_KEY is empty")
	}

	return cfg, nil
}

func (c *Config) ListenAddr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return lvl
}
