// Package logger builds the single *zap.Logger handed to the httpserver
// and mmpq WithLogger options and to ripcurrent.SetLogger. Centralising construction here keeps the level/encoding
// policy in one place instead of duplicating zap.Config across main.go and
// the cluster/dashboard entry points.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a constructed Logger emits.
type Level int

const (
	// LevelDebug emits all messages.
	LevelDebug Level = iota
	// LevelInfo emits INFO and above.
	LevelInfo
	// LevelError emits only ERROR and above.
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a *zap.Logger writing JSON-encoded entries to stderr at the
// given minimum level, with ISO8601 timestamps at millisecond resolution.
func New(level Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l, nil
}

// ParseLevel maps a command-line/config string ("debug", "info", "error")
// to a Level, defaulting to LevelInfo for an unrecognized or empty value.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
