package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server's environment-derived configuration.
type Config struct {
	Port           int           `env:"PORT" envDefault:"5000"`
	GinMode        string        `env:"GIN_MODE" envDefault:"debug"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	RoomTimeout    time.Duration `env:"ROOM_TIMEOUT" envDefault:"2h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
