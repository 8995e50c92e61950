package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGatewayURL  = "https://gateway.aqt.eu/marmot/"
	defaultJournalPath = "qgate.db"
	defaultHTTPTimeout = 5 * time.Second

	envGatewayURL  = "QGATE_GATEWAY_URL"
	envToken       = "QGATE_TOKEN"
	envJournalPath = "QGATE_JOURNAL_PATH"
	envHTTPTimeout = "QGATE_HTTP_TIMEOUT"
	envLogLevel    = "QGATE_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	GatewayURL  string
	Token       string
	JournalPath string
	HTTPTimeout time.Duration
	LogLevel    slog.Level
}

// Load reads configuration from environment variables with sensible
// defaults. Setting QGATE_JOURNAL_PATH to "off" disables the local
// submission journal.
func Load() Config {
	cfg := Config{
		GatewayURL:  defaultGatewayURL,
		JournalPath: defaultJournalPath,
		HTTPTimeout: defaultHTTPTimeout,
		LogLevel:    slog.LevelInfo,
	}

	if v := os.Getenv(envGatewayURL); v != "" {
		cfg.GatewayURL = v
	}
	if v := os.Getenv(envToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(envJournalPath); v != "" {
		if strings.EqualFold(v, "off") {
			cfg.JournalPath = ""
		} else {
			cfg.JournalPath = v
		}
	}
	if v := os.Getenv(envHTTPTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.HTTPTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
