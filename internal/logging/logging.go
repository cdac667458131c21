// Package logging provides stageflow's structured logging setup: slog
// handler selection by configured format, with optional rotating file
// output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/meow-stack/stageflow/internal/config"
)

// NewFromConfig builds a logger per cfg.Logging. When cfg.Logging.File is
// set, log lines go to both stderr and a rotating file; the returned
// io.Closer releases the file handle and must be closed at shutdown.
func NewFromConfig(cfg config.Logging) (*slog.Logger, io.Closer, error) {
	level := parseLevel(cfg.Level)

	if cfg.File == "" {
		return slog.New(newHandler(cfg.Format, os.Stderr, level)), io.NopCloser(nil), nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	multi := io.MultiWriter(os.Stderr, rotator)
	return slog.New(newHandler(cfg.Format, multi, level)), rotator, nil
}

// NewDefault creates a default logger writing JSON to stderr.
func NewDefault() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// WithWorkflow returns a logger annotated with a workflow identifier.
func WithWorkflow(logger *slog.Logger, workflowID string) *slog.Logger {
	return logger.With("workflow_id", workflowID)
}

// WithStage returns a logger annotated with a stage name.
func WithStage(logger *slog.Logger, stageName string) *slog.Logger {
	return logger.With("stage", stageName)
}

// WithAgent returns a logger annotated with an agent identifier.
func WithAgent(logger *slog.Logger, agentID string) *slog.Logger {
	return logger.With("agent", agentID)
}
