package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/meow-stack/stageflow/internal/config"
	"github.com/meow-stack/stageflow/internal/logging"
)

// loadRuntime loads config (overlaying configPath on the defaults) and
// builds the logger it specifies. baseDir always wins over the config
// file's path_security.base_dir: the CLI flag reflects where the process
// actually runs from.
func loadRuntime() (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	resolved, err := filepath.Abs(baseDir)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("resolving basedir: %w", err)
	}
	cfg.PathSecurity.BaseDir = resolved

	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	logger, closer, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, closer, nil
}
