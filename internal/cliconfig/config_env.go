package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LIKESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("LIKESHIP_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("state-dir", os.Getenv("LIKESHIP_STATE_DIR"), &cfg.StateDir)
	s.setString("state-backend", os.Getenv("LIKESHIP_STATE_BACKEND"), &cfg.StateBackend)
	s.setString("lock-path", os.Getenv("LIKESHIP_LOCK_PATH"), &cfg.LockPath)
	s.setString("log-level", os.Getenv("LIKESHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("drain-interval", os.Getenv("LIKESHIP_DRAIN_INTERVAL"), &cfg.DrainInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("LIKESHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("refresh-buffer", os.Getenv("LIKESHIP_REFRESH_BUFFER"), &cfg.RefreshBuffer); err != nil {
		return err
	}

	if err := s.setIntFromString("queue-cap", os.Getenv("LIKESHIP_QUEUE_CAP"), &cfg.QueueCap); err != nil {
		return err
	}
	if err := s.setIntFromString("max-attempts", os.Getenv("LIKESHIP_MAX_ATTEMPTS"), &cfg.MaxAttempts); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv("LIKESHIP_ONCE"), &cfg.Once)

	return nil
}
