package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	DatabaseDSN string `env:"DATABASE_URL,required"`

	AccessTokenSecret   string `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret  string `env:"REFRESH_TOKEN_SECRET,required"`
	ResetPasswordSecret string `env:"RESET_PASSWORD_SECRET,required"`

	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Production reports whether the server runs in a production configuration.
// Refresh cookies are marked Secure only in production.
func (c *Config) Production() bool {
	return c.Env == "production"
}
