package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != "successledger" {
		t.Errorf("service = %q, want %q", entry["service"], "successledger")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in log output")
	}
}

func TestSetup_RespectsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	l := Setup(&buf)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be suppressed at warn level, got %s", buf.String())
	}

	l.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn should be written at warn level")
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	l := SetupDefault(&buf)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	slog.Info("global message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON from global logger: %v", err)
	}
	if entry["msg"] != "global message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global message")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
