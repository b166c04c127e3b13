// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Gateway configuration loaded from the environment and an optional .env file.

package control

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all gateway settings except the backend host, which is a
// command-line argument.
//
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	BackendHost string

	// Network
	ListenHost    string `env:"GATE_LISTEN_HOST" envDefault:"0.0.0.0"`
	ListenPort    int    `env:"GATE_LISTEN_PORT" envDefault:"8002"`
	ListenBacklog int    `env:"GATE_LISTEN_BACKLOG" envDefault:"5"`
	BackendPort   int    `env:"GATE_BACKEND_PORT" envDefault:"8002"`

	// Capacity
	MaxClients int `env:"GATE_MAX_CLIENTS" envDefault:"70"`
	BufferSize int `env:"GATE_BUFFER_SIZE" envDefault:"16384"`
	ReadSize   int `env:"GATE_READ_SIZE" envDefault:"8192"`

	// Turn-taking
	TurnTimeout  time.Duration `env:"GATE_TURN_TIMEOUT" envDefault:"3s"`
	CommandDelay time.Duration `env:"GATE_COMMAND_DELAY" envDefault:"80ms"`

	// Backend reconnect. Equal values give a fixed retry interval.
	ReconnectDelay    time.Duration `env:"GATE_RECONNECT_DELAY" envDefault:"5s"`
	ReconnectMaxDelay time.Duration `env:"GATE_RECONNECT_MAX_DELAY" envDefault:"5s"`

	// Monitoring
	MetricsAddr string `env:"GATE_METRICS_ADDR"`

	// Logging
	Syslog    bool   `env:"GATE_SYSLOG" envDefault:"true"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// EnvFileVar names the variable holding the .env path. It is resolved to an
// absolute path before daemonizing, since the detached child runs from "/".
const EnvFileVar = "GATE_ENV_FILE"

// EnvFile returns the .env path used by LoadConfig and ReloadConfig.
func EnvFile() string {
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	return ".env"
}

// PinEnvFile resolves EnvFile against the working directory and stores the
// absolute path in EnvFileVar, so processes started later with this
// environment read the same file.
func PinEnvFile() (string, error) {
	p, err := filepath.Abs(EnvFile())
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", EnvFileVar, err)
	}
	if err := os.Setenv(EnvFileVar, p); err != nil {
		return "", fmt.Errorf("set %s: %w", EnvFileVar, err)
	}
	return p, nil
}

// LoadConfig reads configuration from a .env file (if present) and the
// process environment. Priority: ENV vars > .env file > defaults.
func LoadConfig(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(EnvFile()); err != nil {
		if logger != nil {
			logger.Debug().Msg("no .env file found, using environment only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ReloadConfig is LoadConfig for a running process: values from the .env
// file replace variables set by the previous load.
func ReloadConfig(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Overload(EnvFile()); err != nil && logger != nil {
		logger.Debug().Err(err).Msg("no .env file to reload")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ParseConfig builds a Config from an explicit variable map instead of the
// process environment.
func ParseConfig(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("GATE_LISTEN_PORT must be 0-65535, got %d", c.ListenPort)
	}
	if c.BackendPort < 1 || c.BackendPort > 65535 {
		return fmt.Errorf("GATE_BACKEND_PORT must be 1-65535, got %d", c.BackendPort)
	}
	if c.ListenBacklog < 1 {
		return fmt.Errorf("GATE_LISTEN_BACKLOG must be > 0, got %d", c.ListenBacklog)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("GATE_MAX_CLIENTS must be > 0, got %d", c.MaxClients)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("GATE_BUFFER_SIZE must be > 0, got %d", c.BufferSize)
	}
	if c.ReadSize < 1 || c.ReadSize > c.BufferSize {
		return fmt.Errorf("GATE_READ_SIZE must be 1-%d, got %d", c.BufferSize, c.ReadSize)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("GATE_TURN_TIMEOUT must be positive, got %s", c.TurnTimeout)
	}
	if c.CommandDelay < 0 {
		return fmt.Errorf("GATE_COMMAND_DELAY must not be negative, got %s", c.CommandDelay)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("GATE_RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay)
	}
	if c.ReconnectMaxDelay < c.ReconnectDelay {
		return fmt.Errorf("GATE_RECONNECT_MAX_DELAY (%s) must be >= GATE_RECONNECT_DELAY (%s)",
			c.ReconnectMaxDelay, c.ReconnectDelay)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, text (got: %s)", c.LogFormat)
	}
	return nil
}

// LogConfig logs the effective configuration.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("backend_host", c.BackendHost).
		Int("backend_port", c.BackendPort).
		Str("listen_host", c.ListenHost).
		Int("listen_port", c.ListenPort).
		Int("max_clients", c.MaxClients).
		Int("buffer_size", c.BufferSize).
		Dur("turn_timeout", c.TurnTimeout).
		Dur("command_delay", c.CommandDelay).
		Dur("reconnect_delay", c.ReconnectDelay).
		Str("metrics_addr", c.MetricsAddr).
		Msg("gateway configuration loaded")
}
