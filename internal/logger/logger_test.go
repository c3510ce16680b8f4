package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// withLogger swaps the global logger for the duration of the test.
func withLogger(t *testing.T, l *zap.Logger) {
	prev := Log
	Log = l
	t.Cleanup(func() { Log = prev })
}

func TestNopByDefault(t *testing.T) {
	// Must not panic before Init.
	Named("nif").Debug("ignored")
	Warn("ignored")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "niftool.log")
	withLogger(t, newLogger(zapcore.DebugLevel, nil, logFile))

	Named("assets").Debug("model decoded", zap.String("path", "meshes/chair.nif"))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"logger":"assets"`, `"msg":"model decoded"`, `"path":"meshes/chair.nif"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestLevelFilters(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "warn.log")
	withLogger(t, newLogger(parseLevel("warn"), nil, logFile))

	Named("nif").Info("dropped")
	Warn("kept")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Errorf("unexpected log contents: %q", data)
	}
}

func TestNoOutputsIsNop(t *testing.T) {
	if l := newLogger(zapcore.DebugLevel, nil, ""); l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger without outputs is enabled")
	}
}
