// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers files, env and flag overrides on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net"
	"strings"
)

// Store backend names.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON.
	LogJSON bool `koanf:"log_json"`

	// APIAddr is the listen address of the mocked REST API, e.g. ":9999".
	APIAddr string `koanf:"api_addr"`

	// ControlAddr is the listen address of the control channel, e.g. ":9998".
	ControlAddr string `koanf:"control_addr"`

	// Store selects the response store backend: memory or redis.
	Store string `koanf:"store"`

	// Redis settings, used when Store is redis.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// Fixtures is an optional YAML file of responses applied at startup.
	Fixtures string `koanf:"fixtures"`

	// WatchFixtures re-applies Fixtures whenever the file changes.
	WatchFixtures bool `koanf:"watch_fixtures"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		APIAddr:     ":9999",
		ControlAddr: ":9998",
		Store:       StoreMemory,
		RedisPrefix: "mocksrv:response:",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.APIAddr) == "":
		return fmt.Errorf("%w: api_addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ControlAddr) == "":
		return fmt.Errorf("%w: control_addr must not be empty", ErrInvalidConfig)
	case c.APIAddr == c.ControlAddr && !ephemeral(c.APIAddr):
		return fmt.Errorf("%w: api_addr and control_addr must differ", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Store) {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if c.WatchFixtures && c.Fixtures == "" {
		return fmt.Errorf("%w: watch_fixtures needs a fixtures file", ErrInvalidConfig)
	}
	return nil
}

// ephemeral reports whether addr asks the kernel for a free port.
func ephemeral(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port == "0"
}
