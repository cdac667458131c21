package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meow-stack/stageflow/internal/config"
)

func TestNewFromConfigDefaultsToStderr(t *testing.T) {
	logger, closer, err := NewFromConfig(config.Logging{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer closer.Close()
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
}

func TestNewFromConfigWithFileRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "stageflow.log")

	logger, closer, err := NewFromConfig(config.Logging{
		Level:      "debug",
		Format:     "json",
		File:       logPath,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer closer.Close()

	logger.Info("test message", "key", "value")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("log file does not contain expected message: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler("json", &buf, slog.LevelInfo))
	logger.Info("test", "key", "value")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v (output: %s)", err, buf.String())
	}
	if result["msg"] != "test" {
		t.Errorf("msg = %v, want test", result["msg"])
	}
	if result["key"] != "value" {
		t.Errorf("key = %v, want value", result["key"])
	}
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler("text", &buf, slog.LevelInfo))
	logger.Info("test", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test") {
		t.Errorf("output should contain 'test': %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("output should contain 'key=value': %s", output)
	}
}

func TestNewDefault(t *testing.T) {
	if NewDefault() == nil {
		t.Fatal("expected logger to be non-nil")
	}
}

func TestNewForTest(t *testing.T) {
	logger := NewForTest()
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	logger.Info("test message")
}

func TestWithWorkflow(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithWorkflow(logger, "run-001").Info("test")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["workflow_id"] != "run-001" {
		t.Errorf("workflow_id = %v, want run-001", result["workflow_id"])
	}
}

func TestWithStage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithStage(logger, "summarize").Info("test")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["stage"] != "summarize" {
		t.Errorf("stage = %v, want summarize", result["stage"])
	}
}

func TestWithAgent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithAgent(logger, "claude-1").Info("test")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["agent"] != "claude-1" {
		t.Errorf("agent = %v, want claude-1", result["agent"])
	}
}
