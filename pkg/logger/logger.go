// Package logger owns the process-wide zap logger. Every entry carries the service name;
// components add their own name through Named.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "fdk-resource-service"

var (
	mu     sync.RWMutex
	global *zap.Logger
)

// Config returns the zap configuration for a level (debug through fatal) and a format
// (json or console). Console output colours the level and is meant for local runs.
func Config(level, format string) (zap.Config, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.MessageKey = "message"
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	format = strings.ToLower(format)
	switch format {
	case "json":
	case "console":
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q", format)
	}

	return zap.Config{
		Level:            lvl,
		Encoding:         format,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]any{"service": serviceName},
	}, nil
}

// Init builds the logger from Config and installs it as the global logger.
func Init(level, format string) (*zap.Logger, error) {
	cfg, err := Config(level, format)
	if err != nil {
		return nil, err
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	Replace(l)
	return l, nil
}

// Replace installs l as the global logger and returns a func that restores the previous one.
func Replace(l *zap.Logger) (restore func()) {
	mu.Lock()
	prev := global
	global = l
	mu.Unlock()
	return func() { Replace(prev) }
}

// L returns the global logger. Panics if not initialized.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		panic("logger not initialized: call logger.Init first")
	}
	return global
}

// Named returns a child of the global logger tagged with a component field.
func Named(component string) *zap.Logger {
	return L().With(zap.String("component", component))
}

func Sync() {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
