package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("debug message")
	logger.Info("info message", ports.String("endpoint", "b2c"))
	logger.Warn("warn message")
	logger.Error("error message", ports.Err(errors.New("boom")))

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "b2c", entries[1].ContextMap()["endpoint"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestZapLoggerAdapter_FieldTypes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info("typed",
		ports.Int("status_code", 200),
		ports.Duration("elapsed", 1500*time.Millisecond),
		ports.Field{Key: "token", Value: secret.New("very-secret-token")},
	)

	fields := logs.AllUntimed()[0].ContextMap()
	assert.Equal(t, int64(200), fields["status_code"])
	assert.Equal(t, 1500*time.Millisecond, fields["elapsed"])
	assert.Equal(t, "[REDACTED]", fields["token"])
}

func TestNewZapLogger_NilDiscards(t *testing.T) {
	logger := NewZapLogger(nil)
	assert.NotPanics(t, func() {
		logger.Info("nothing happens")
	})
	assert.NotNil(t, logger.Zap())
}

func TestNew(t *testing.T) {
	logger, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("WARN", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = New("loud", false)
	assert.Error(t, err)
}
