package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/tradepulse/backend/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"warning alias", "warning", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
		{"uppercase", "INFO", zerolog.InfoLevel},
		{"unknown falls back to info", "trace", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLogLevel(tt.level); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestDerivedLoggers(t *testing.T) {
	log := New(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"})

	// Derived loggers must not be nil and must not mutate the parent.
	withField := log.WithField("symbol", "AAPL")
	if withField == nil || withField == log {
		t.Error("WithField should return a new logger")
	}

	withFields := log.WithFields(map[string]interface{}{"a": 1, "b": "x"})
	if withFields == nil || withFields == log {
		t.Error("WithFields should return a new logger")
	}

	if log.WithError(nil) == nil {
		t.Error("WithError should return a new logger")
	}
}
