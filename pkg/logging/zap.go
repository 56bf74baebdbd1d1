// Package logging adapts zap to the adapters' Logger port.
package logging

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerAdapter adapts zap.Logger to our Logger port interface
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLogger creates a new ZapLoggerAdapter. A nil logger discards everything.
func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLoggerAdapter{logger: logger}
}

// New builds a zap logger for the given level (debug, info, warn, error)
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Zap returns the underlying zap logger
func (z *ZapLoggerAdapter) Zap() *zap.Logger {
	return z.logger
}

// Info logs an info message
func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, convertFields(fields)...)
}

// Error logs an error message
func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, convertFields(fields)...)
}

// Warn logs a warning message
func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, convertFields(fields)...)
}

// Debug logs a debug message
func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, convertFields(fields)...)
}

// convertFields converts our Field type to zap.Field
func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch v := f.Value.(type) {
		case secret.Secret:
			// never let a secret reach zap.Any's reflection path
			zapFields[i] = zap.String(f.Key, v.String())
		case error:
			zapFields[i] = zap.NamedError(f.Key, v)
		case time.Duration:
			zapFields[i] = zap.Duration(f.Key, v)
		case string:
			zapFields[i] = zap.String(f.Key, v)
		case int:
			zapFields[i] = zap.Int(f.Key, v)
		default:
			zapFields[i] = zap.Any(f.Key, v)
		}
	}
	return zapFields
}
