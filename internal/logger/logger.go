// Package logger holds the process-wide zap logger used by the tools and
// the asset layer. Until Init is called every call is a no-op, so library
// code and tests may log freely.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance.
var Log = zap.NewNop()

// Rotation limits for the log file.
const (
	rotateMB      = 20
	rotateBackups = 3
	rotateDays    = 7
)

// Init replaces Log with a logger writing colored text to stderr at level
// and, when logFile is set, JSON lines to a rotating file.
func Init(level, logFile string) error {
	Log = newLogger(parseLevel(level), zapcore.Lock(os.Stderr), logFile)
	return nil
}

// newLogger tees a console core onto console (if set) with a file core on
// path (if set). With neither it returns a no-op logger.
func newLogger(lvl zapcore.Level, console zapcore.WriteSyncer, path string) *zap.Logger {
	var cores []zapcore.Core
	if console != nil {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "logger",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, console, lvl))
	}
	if path != "" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotateMB,
			MaxBackups: rotateBackups,
			MaxAge:     rotateDays,
			Compress:   true,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(rot), lvl))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Named returns a child of the global logger for one component, e.g.
// "nif" or "assets". It reflects the logger current at call time.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Log.Sync()
}

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}
