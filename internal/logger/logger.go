// Package logger implements the leveled logging sink spec.md §1 names as
// out-of-scope-but-trivial, carried through per SPEC_FULL.md §1.1: the
// DEBUG/INFO/WARN/ERROR/FATAL taxonomy of
// original_source/include/core/logger.h, backed by go.uber.org/zap
// instead of a hand-rolled file writer.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors original_source/include/core/logger.h's LogLevel enum
// exactly: DEBUG=0, INFO=1, WARN=2, ERROR=3, FATAL=4.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ParseLevel accepts the config-file spelling ("DEBUG", "info", ...) used
// by server.log_level (spec.md §6 extension, SPEC_FULL.md §1.1).
func ParseLevel(s string) (Level, error) {
	switch s {
	case "DEBUG", "debug":
		return LevelDebug, nil
	case "INFO", "info", "":
		return LevelInfo, nil
	case "WARN", "warn", "WARNING", "warning":
		return LevelWarn, nil
	case "ERROR", "error":
		return LevelError, nil
	case "FATAL", "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("logger: unrecognized level %q", s)
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger wraps a *zap.SugaredLogger, matching original_source's Logger
// singleton's init(log_file, level) + debug/info/warn/error/fatal surface,
// but as an explicit, injectable value rather than process-global state
// (spec.md §9's "Global server singleton" redesign note applies equally
// here: no package-level instance is kept).
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New builds a Logger writing to logFile (created, with parent
// directories, if needed) at the given level. A logFile of "" writes to
// stderr, matching the original's behavior when no log file is
// configured.
func New(logFile string, level Level) (*Logger, error) {
	var writer zapcore.WriteSyncer
	if logFile == "" {
		writer = zapcore.AddSync(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logger: open log file: %w", err)
		}
		writer = zapcore.AddSync(f)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, level.zapLevel())
	base := zap.New(core)
	return &Logger{SugaredLogger: base.Sugar(), base: base}, nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
