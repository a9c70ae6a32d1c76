package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "console", "auto"} {
		t.Run(format, func(t *testing.T) {
			logger := New(config.LoggingConfig{Level: "debug", Format: format, Output: "stderr"}, "1.0.0")
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
		{"case insensitive", "DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestZapLevel(t *testing.T) {
	tests := map[slog.Level]zapcore.Level{
		slog.LevelDebug: zapcore.DebugLevel,
		slog.LevelInfo:  zapcore.InfoLevel,
		slog.LevelWarn:  zapcore.WarnLevel,
		slog.LevelError: zapcore.ErrorLevel,
	}
	for in, want := range tests {
		if got := zapLevel(in); got != want {
			t.Errorf("zapLevel(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_With(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "1.0.0")
	childLogger := logger.With("component", "receiver")

	if childLogger == nil {
		t.Fatal("expected non-nil child logger")
	}
	if childLogger == logger {
		t.Error("expected child logger to be different from parent")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}

func TestLogger_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", slog.LevelInfo, "test-version", false)
	logger.Info("test message", "key", "value")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["service"] != ServiceName {
		t.Errorf("service = %v, want %s", logEntry["service"], ServiceName)
	}
	if logEntry["version"] != "test-version" {
		t.Errorf("version = %v", logEntry["version"])
	}
	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}

func TestLogger_AutoFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "auto", slog.LevelInfo, "v", false)
	logger.Info("piped")

	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("auto format without a terminal is not JSON: %q", buf.String())
	}
}

func TestLogger_ConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "console", slog.LevelWarn, "v", true)

	logger.Info("hidden")
	logger.Warn("shown", "pin", "GPIO17")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn level filter")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "GPIO17") {
		t.Errorf("console output = %q", out)
	}
}
