// Package config loads stageflow's startup configuration: a defaults
// struct overlaid with an optional TOML file, covering the template
// cache, memory manager, path security, and stage-executor sections.
package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meow-stack/stageflow/internal/stageerr"
)

// Template configures the prompt template engine's compiled-template cache.
type Template struct {
	CacheEnabled         bool          `toml:"cache_enabled"`
	CacheMaxSize         int           `toml:"cache_max_size"`
	CacheTTL             time.Duration `toml:"cache_ttl"`
	CacheCleanupInterval time.Duration `toml:"cache_cleanup_interval"`
}

// Memory configures the heap-pressure manager.
type Memory struct {
	WarningThreshold      float64       `toml:"warning_threshold"`
	CriticalThreshold     float64       `toml:"critical_threshold"`
	EmergencyThreshold    float64       `toml:"emergency_threshold"`
	MonitoringInterval    time.Duration `toml:"monitoring_interval"`
	CleanupInterval       time.Duration `toml:"cleanup_interval"`
	ResourceExpiry        time.Duration `toml:"resource_expiry"`
	ManagerThreadPoolSize int           `toml:"manager_thread_pool_size"`
}

// PathSecurity configures the file-read tool's sandbox.
type PathSecurity struct {
	BaseDir               string `toml:"base_dir"`
	AllowSymlinks         bool   `toml:"allow_symlinks"`
	FileReadMaxSize       int64  `toml:"file_read_max_size"`
	FileReadMaxPathLength int    `toml:"file_read_max_path_length"`
}

// Stage configures stage-executor defaults.
type Stage struct {
	DefaultMaxRetries int `toml:"default_max_retries"`
}

// Logging configures the ambient slog handler and optional file rotation.
type Logging struct {
	Level      string `toml:"level"`       // debug|info|warn|error
	Format     string `toml:"format"`      // json|text
	File       string `toml:"file"`        // empty disables file output
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config is the complete startup configuration surface.
type Config struct {
	Template     Template     `toml:"template"`
	Memory       Memory       `toml:"memory"`
	PathSecurity PathSecurity `toml:"path_security"`
	Stage        Stage        `toml:"stage"`
	Logging      Logging      `toml:"logging"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Template: Template{
			CacheEnabled:         true,
			CacheMaxSize:         256,
			CacheTTL:             30 * time.Minute,
			CacheCleanupInterval: 5 * time.Minute,
		},
		Memory: Memory{
			WarningThreshold:      0.75,
			CriticalThreshold:     0.85,
			EmergencyThreshold:    0.95,
			MonitoringInterval:    5 * time.Second,
			CleanupInterval:       60 * time.Second,
			ResourceExpiry:        10 * time.Minute,
			ManagerThreadPoolSize: 2,
		},
		PathSecurity: PathSecurity{
			AllowSymlinks:         false,
			FileReadMaxSize:       10 << 20,
			FileReadMaxPathLength: 4096,
		},
		Stage: Stage{
			DefaultMaxRetries: 3,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load overlays a TOML file's values on top of Default(). An empty path
// returns Default() unchanged; a non-empty path that cannot be read is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, stageerr.Wrap(stageerr.CodeInputInvalid, "config: failed to decode file", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, stageerr.InputInvalidf("config: unrecognized keys: %v", undecoded)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Template.CacheEnabled && c.Template.CacheMaxSize < 1 {
		return stageerr.InputInvalid("config: template.cache_max_size must be >= 1 when caching is enabled")
	}
	if c.Memory.WarningThreshold <= 0 || c.Memory.WarningThreshold >= c.Memory.CriticalThreshold {
		return stageerr.InputInvalid("config: memory.warning_threshold must be positive and less than critical_threshold")
	}
	if c.Memory.CriticalThreshold >= c.Memory.EmergencyThreshold {
		return stageerr.InputInvalid("config: memory.critical_threshold must be less than emergency_threshold")
	}
	if c.Memory.EmergencyThreshold > 1 {
		return stageerr.InputInvalid("config: memory.emergency_threshold must be <= 1")
	}
	if c.PathSecurity.BaseDir == "" {
		return stageerr.InputInvalid("config: path_security.base_dir must be set")
	}
	return nil
}
