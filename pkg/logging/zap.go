// Package logging provides the concrete structured-logging implementation
// of orchestrator.Logger. Callers throughout the module depend only on the
// interface; this package is wired in once, at cmd/bridge.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// zapLogger adapts a zap.SugaredLogger to orchestrator.Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ orchestrator.Logger = (*zapLogger)(nil)

// NewZapLogger builds a production zap logger at the given level
// ("debug", "info", "warn", "error", or any other level name zapcore
// accepts; an unrecognized string defaults to "info").
func NewZapLogger(level string) (orchestrator.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: logger.Sugar()}, nil
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
