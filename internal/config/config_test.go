package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envGatewayURL, "")
	t.Setenv(envToken, "")
	t.Setenv(envJournalPath, "")
	t.Setenv(envHTTPTimeout, "")
	t.Setenv(envLogLevel, "")

	cfg := Load()

	if cfg.GatewayURL != defaultGatewayURL {
		t.Errorf("GatewayURL = %q, want %q", cfg.GatewayURL, defaultGatewayURL)
	}
	if cfg.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Token)
	}
	if cfg.JournalPath != defaultJournalPath {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, defaultJournalPath)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, defaultHTTPTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envGatewayURL, "http://localhost:8080/")
	t.Setenv(envToken, "secret")
	t.Setenv(envJournalPath, "/tmp/test.db")
	t.Setenv(envHTTPTimeout, "30")
	t.Setenv(envLogLevel, "debug")

	cfg := Load()

	if cfg.GatewayURL != "http://localhost:8080/" {
		t.Errorf("GatewayURL = %q, want %q", cfg.GatewayURL, "http://localhost:8080/")
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want %q", cfg.Token, "secret")
	}
	if cfg.JournalPath != "/tmp/test.db" {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, "/tmp/test.db")
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, 30*time.Second)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
}

func TestLoadJournalOff(t *testing.T) {
	t.Setenv(envJournalPath, "off")

	cfg := Load()
	if cfg.JournalPath != "" {
		t.Errorf("JournalPath = %q, want empty when disabled", cfg.JournalPath)
	}
}

func TestLoadBadTimeoutKeepsDefault(t *testing.T) {
	t.Setenv(envHTTPTimeout, "soon")

	cfg := Load()
	if cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want default %v", cfg.HTTPTimeout, defaultHTTPTimeout)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
