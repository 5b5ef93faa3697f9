// Package dlogger builds the zap loggers that records and stores accept
// through their options. The library itself never logs unless a caller
// hands one of these in.
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted by New
const (
	// LogLevelInfo logs container commits and record lifecycle events
	LogLevelInfo = "info"

	// LogLevelDebug additionally logs every tree edit and store operation
	LogLevelDebug = "debug"

	// LogLevelNone disables logging entirely
	LogLevelNone = "none"
)

// New returns a production zap logger at the given level, or a nop
// logger for LogLevelNone. Sampling is disabled: this library emits one
// line per container operation, so dropping any of them only hides
// information.
func New(level string) (*zap.Logger, error) {
	if level == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// MustNew is New for levels known at compile time. It panics on a level
// zap cannot parse.
func MustNew(level string) *zap.Logger {
	l, err := New(level)
	if err != nil {
		panic(err)
	}
	return l
}
