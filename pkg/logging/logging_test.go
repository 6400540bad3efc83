package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultConfig_ReadsEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := DefaultConfig().Level; got != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", got)
	}
}

func TestSetup_JSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(Config{Level: slog.LevelWarn, JSON: true, Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept", "file", "a.csv")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["msg"] != "kept" || rec["file"] != "a.csv" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestSetup_DebugAddsSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(Config{Level: slog.LevelDebug, Output: &buf}).Debug("hello")

	out := buf.String()
	if !strings.Contains(out, "source=logging_test.go:") {
		t.Errorf("expected trimmed source attribute, got %q", out)
	}
}
