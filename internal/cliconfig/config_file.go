package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ServiceURL    string `toml:"service_url"`
	StateDir      string `toml:"state_dir"`
	StateBackend  string `toml:"state_backend"`
	LockPath      string `toml:"lock_path"`
	DrainInterval string `toml:"drain_interval"`
	HTTPTimeout   string `toml:"http_timeout"`
	RefreshBuffer string `toml:"refresh_buffer"`
	QueueCap      int    `toml:"queue_cap"`
	MaxAttempts   int    `toml:"max_attempts"`
	Once          *bool  `toml:"once"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.likeship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".likeship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("state-backend", fc.StateBackend, &cfg.StateBackend)
	s.setString("lock-path", fc.LockPath, &cfg.LockPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("drain-interval", fc.DrainInterval, &cfg.DrainInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("refresh-buffer", fc.RefreshBuffer, &cfg.RefreshBuffer); err != nil {
		return err
	}

	s.setInt("queue-cap", fc.QueueCap, &cfg.QueueCap)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
