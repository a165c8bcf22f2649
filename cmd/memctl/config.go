package main

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"

	"github.com/joshuapare/memkit/cmd/memctl/logger"
	"github.com/joshuapare/memkit/internal/script"
	"github.com/joshuapare/memkit/pkg/types"
)

const envVarPrefix = "MEMCTL"

// Config holds settings read from MEMCTL_* environment variables.
type Config struct {
	Log              bool   `envconfig:"LOG"               default:"false"`
	LogDir           string `envconfig:"LOG_DIR"`
	LogLevel         string `envconfig:"LOG_LEVEL"         default:"info"`
	DefaultAllocator string `envconfig:"DEFAULT_ALLOCATOR" default:"freelist"`
	DefaultStrategy  string `envconfig:"DEFAULT_STRATEGY"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("invalid configuration: %s_LOG_LEVEL: %w", envVarPrefix, err)
	}
	switch c.DefaultAllocator {
	case script.KindFreeList, script.KindBuddy, script.KindBuddyList:
	default:
		return fmt.Errorf("invalid configuration: %s_DEFAULT_ALLOCATOR: unknown allocator %q",
			envVarPrefix, c.DefaultAllocator)
	}
	if c.DefaultStrategy != "" {
		if _, err := types.ParseStrategy(c.DefaultStrategy); err != nil {
			return fmt.Errorf("invalid configuration: %s_DEFAULT_STRATEGY: %w", envVarPrefix, err)
		}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	return logger.ParseLevel(c.LogLevel)
}
