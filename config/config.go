// Package config loads server settings from the environment, with
// defaults suitable for local development. Flags in cmd/server can
// override individual values.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Backend names for the persistence layer.
const (
	BackendSQLite   = "sqlite"
	BackendJSONFile = "jsonfile"
	BackendMemory   = "memory"
)

type Config struct {
	HTTPServer
	Storage
	LogLevel string `env:"STUDIO_LOG_LEVEL" env-default:"info"`
}

type HTTPServer struct {
	Addr            string        `env:"STUDIO_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `env:"STUDIO_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"STUDIO_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `env:"STUDIO_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"STUDIO_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  string        `env:"STUDIO_CORS_ORIGINS" env-default:"*"`
}

type Storage struct {
	// Backend selects the persistence implementation:
	// sqlite, jsonfile, or memory.
	Backend   string `env:"STUDIO_BACKEND" env-default:"sqlite"`
	DBPath    string `env:"STUDIO_DB" env-default:"studio.db"`
	StatePath string `env:"STUDIO_STATE" env-default:"studio.json"`
}

// Load reads the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendJSONFile, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s, or %s)",
			c.Backend, BackendSQLite, BackendJSONFile, BackendMemory)
	}
	return nil
}
