package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
service_url = "http://localhost:9000"
state_backend = "sqlite"
drain_interval = "30s"
queue_cap = 100
once = true
log_level = "debug"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if fc.ServiceURL != "http://localhost:9000" {
		t.Errorf("ServiceURL = %v", fc.ServiceURL)
	}
	if fc.StateBackend != "sqlite" {
		t.Errorf("StateBackend = %v", fc.StateBackend)
	}
	if fc.DrainInterval != "30s" {
		t.Errorf("DrainInterval = %v", fc.DrainInterval)
	}
	if fc.QueueCap != 100 {
		t.Errorf("QueueCap = %v", fc.QueueCap)
	}
	if fc.Once == nil || !*fc.Once {
		t.Error("Once not parsed")
	}
	if fc.LogLevel != "debug" {
		t.Errorf("LogLevel = %v", fc.LogLevel)
	}
}

func TestLoadFileConfig_Invalid(t *testing.T) {
	path := writeConfigFile(t, `service_url = [broken`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{
		ServiceURL:    "http://localhost:9000",
		DrainInterval: "30s",
		QueueCap:      100,
	}

	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.ServiceURL != "http://localhost:9000" {
		t.Errorf("ServiceURL = %v", cfg.ServiceURL)
	}
	if cfg.DrainInterval != 30*time.Second {
		t.Errorf("DrainInterval = %v", cfg.DrainInterval)
	}
	if cfg.QueueCap != 100 {
		t.Errorf("QueueCap = %v", cfg.QueueCap)
	}
}

func TestApplyFileConfig_FlagPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceURL = "http://from-flag:8080"
	fc := FileConfig{ServiceURL: "http://from-file:9000"}

	changed := map[string]bool{"service-url": true}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.ServiceURL != "http://from-flag:8080" {
		t.Errorf("explicit flag overridden by file: %v", cfg.ServiceURL)
	}
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{DrainInterval: "soon"}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Fatal("expected duration parse error")
	}
}
