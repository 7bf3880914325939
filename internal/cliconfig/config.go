package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/likelabs/likeship/internal/domain"
)

// DefaultServiceURL is the default capture service endpoint.
const DefaultServiceURL = "https://api.likelabs.io"

// Backends for the local state store.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds CLI configuration for likeship.
type Config struct {
	ServiceURL   string
	StateDir     string
	StateBackend string
	LockPath     string

	DrainInterval time.Duration
	HTTPTimeout   time.Duration
	RefreshBuffer time.Duration

	QueueCap    int
	MaxAttempts int

	Once     bool
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:    DefaultServiceURL,
		StateBackend:  BackendFile,
		DrainInterval: time.Minute,
		HTTPTimeout:   10 * time.Second,
		RefreshBuffer: time.Minute,
		QueueCap:      domain.DefaultQueueCap,
		MaxAttempts:   domain.DefaultMaxAttempts,
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}

	// Ensure no trailing slash
	if len(c.ServiceURL) > 0 && c.ServiceURL[len(c.ServiceURL)-1] == '/' {
		c.ServiceURL = c.ServiceURL[:len(c.ServiceURL)-1]
	}

	if c.StateDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("state-dir is required when no home directory is available: %w", err)
		}
		c.StateDir = filepath.Join(h, ".likeship")
	}

	if c.LockPath == "" {
		c.LockPath = filepath.Join(c.StateDir, "likeship.lock")
	}

	switch c.StateBackend {
	case "", BackendFile:
		c.StateBackend = BackendFile
	case BackendSQLite:
	default:
		return fmt.Errorf("unknown state backend %q (want %s or %s)", c.StateBackend, BackendFile, BackendSQLite)
	}

	if c.DrainInterval <= 0 {
		return fmt.Errorf("drain interval must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.RefreshBuffer < 0 {
		return fmt.Errorf("refresh buffer must not be negative")
	}
	if c.QueueCap <= 0 {
		return fmt.Errorf("queue cap must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
