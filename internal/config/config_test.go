package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Template.CacheEnabled {
		t.Error("Template.CacheEnabled = false, want true")
	}
	if cfg.Template.CacheMaxSize != 256 {
		t.Errorf("Template.CacheMaxSize = %d, want 256", cfg.Template.CacheMaxSize)
	}
	if cfg.Memory.WarningThreshold != 0.75 {
		t.Errorf("Memory.WarningThreshold = %v, want 0.75", cfg.Memory.WarningThreshold)
	}
	if cfg.Memory.CriticalThreshold != 0.85 {
		t.Errorf("Memory.CriticalThreshold = %v, want 0.85", cfg.Memory.CriticalThreshold)
	}
	if cfg.Memory.EmergencyThreshold != 0.95 {
		t.Errorf("Memory.EmergencyThreshold = %v, want 0.95", cfg.Memory.EmergencyThreshold)
	}
	if cfg.Stage.DefaultMaxRetries != 3 {
		t.Errorf("Stage.DefaultMaxRetries = %d, want 3", cfg.Stage.DefaultMaxRetries)
	}
	if cfg.PathSecurity.FileReadMaxPathLength != 4096 {
		t.Errorf("PathSecurity.FileReadMaxPathLength = %d, want 4096", cfg.PathSecurity.FileReadMaxPathLength)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[template]
cache_enabled = true
cache_max_size = 64
cache_ttl = "10m"

[memory]
warning_threshold = 0.5
critical_threshold = 0.7
emergency_threshold = 0.9

[path_security]
base_dir = "` + dir + `"
allow_symlinks = true

[stage]
default_max_retries = 5
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Template.CacheMaxSize != 64 {
		t.Errorf("Template.CacheMaxSize = %d, want 64", cfg.Template.CacheMaxSize)
	}
	if cfg.Template.CacheTTL != 10*time.Minute {
		t.Errorf("Template.CacheTTL = %v, want 10m", cfg.Template.CacheTTL)
	}
	if cfg.Memory.WarningThreshold != 0.5 {
		t.Errorf("Memory.WarningThreshold = %v, want 0.5", cfg.Memory.WarningThreshold)
	}
	if cfg.Stage.DefaultMaxRetries != 5 {
		t.Errorf("Stage.DefaultMaxRetries = %d, want 5", cfg.Stage.DefaultMaxRetries)
	}
	if !cfg.PathSecurity.AllowSymlinks {
		t.Error("PathSecurity.AllowSymlinks = false, want true")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Stage.DefaultMaxRetries != 3 {
		t.Errorf("expected default config, got DefaultMaxRetries=%d", cfg.Stage.DefaultMaxRetries)
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte(`invalid = [toml`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail for invalid TOML")
	}
}

func TestLoadRejectsUnrecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[template]
made_up_field = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail for an unrecognized key")
	}
}

func TestLoadRejectsMissingBaseDir(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[stage]\ndefault_max_retries = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail when path_security.base_dir is unset")
	}
}

func TestConfigValidateRejectsUnorderedThresholds(t *testing.T) {
	cfg := Default()
	cfg.PathSecurity.BaseDir = "/tmp"
	cfg.Memory.WarningThreshold = 0.9
	cfg.Memory.CriticalThreshold = 0.5
	if err := cfg.validate(); err == nil {
		t.Error("expected error for warning_threshold >= critical_threshold")
	}
}
