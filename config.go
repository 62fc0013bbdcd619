package turborest

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the process configuration read from the environment. The
// variable names follow the substrate's established CONF_* convention.
type Config struct {
	ListenPort      string        `env:"CONF_LISTEN_PORT" envDefault:"8080"`
	DBHostPort      string        `env:"CONF_DB_SERVERNAME_PORT" envDefault:"localhost:27017"`
	DBUsername      string        `env:"CONF_DB_USERNAME"`
	DBPassword      string        `env:"CONF_DB_USERPASSWORD"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsDevelopment reports whether the process runs in development mode, which
// enables permissive CORS and the console log encoder.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Connection derives the store connection settings from the configuration.
func (c Config) Connection() ConnectionConfig {
	return ConnectionConfig{
		HostPort: c.DBHostPort,
		Username: c.DBUsername,
		Password: c.DBPassword,
	}
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("turborest: load config: %w", err)
	}
	return cfg, nil
}
