package internal

import (
	"bytes"
	"strings"
	"testing"
)

// TestLoggerLevels tests that messages above the level are suppressed
func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelInfo)

	logger.Error("e %d", 1)
	logger.Warn("w")
	logger.Info("i")
	logger.Debug("d")
	logger.Trace("t")

	got := buf.String()
	for _, want := range []string{"[ERROR] e 1", "[WARN] w", "[INFO] i"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got %q", want, got)
		}
	}
	if strings.Contains(got, "[DEBUG]") || strings.Contains(got, "[TRACE]") {
		t.Errorf("Expected debug and trace to be suppressed, got %q", got)
	}
}

// TestParseLogLevel tests level name parsing
func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"ERROR":  LogLevelError,
		"warn":   LogLevelWarn,
		" INFO ": LogLevelInfo,
		"debug":  LogLevelDebug,
		"TRACE":  LogLevelTrace,
		"bogus":  LogLevelInfo,
		"":       LogLevelInfo,
	}
	for input, want := range tests {
		if got := ParseLogLevel(input); got != want {
			t.Errorf("ParseLogLevel(%q): expected %d, got %d", input, want, got)
		}
	}
}

// TestNilLoggerIsSilent tests that a nil logger can be called safely
func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	logger.Info("nothing happens")
}
