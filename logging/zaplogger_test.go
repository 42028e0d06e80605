package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDevLogger(t *testing.T) {
	logger := NewDevLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &ZapLogger{}, logger)
}

func TestNewProdLogger(t *testing.T) {
	logger := NewProdLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &ZapLogger{}, logger)
}

func TestZapLoggerLevels(t *testing.T) {
	logger, obs := NewTestLogger()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	require.Equal(t, 4, obs.Len())
	all := obs.All()
	assert.Equal(t, "debug message", all[0].Message)
	assert.Equal(t, zap.DebugLevel, all[0].Level)
	assert.Equal(t, zap.InfoLevel, all[1].Level)
	assert.Equal(t, zap.WarnLevel, all[2].Level)
	assert.Equal(t, zap.ErrorLevel, all[3].Level)
}

func TestZapLoggerStructured(t *testing.T) {
	logger, obs := NewTestLogger()

	logger.Debugw("debug message", "key", "value")
	require.Equal(t, 1, obs.Len())
	entry := obs.All()[0]
	assert.Equal(t, "debug message", entry.Message)
	assert.Contains(t, entry.Context, zap.String("key", "value"))
}

func TestZapLoggerFormatted(t *testing.T) {
	logger, obs := NewTestLogger()

	logger.Debugf("debug: %s %d", "test", 42)
	require.Equal(t, 1, obs.Len())
	assert.Equal(t, "debug: test 42", obs.All()[0].Message)
}

func TestZapLoggerNamed(t *testing.T) {
	logger, obs := NewTestLogger()

	named := logger.Named("test")
	require.IsType(t, &ZapLogger{}, named)

	named.Info("test message")
	require.Equal(t, 1, obs.Len())
	assert.Equal(t, "test", obs.All()[0].LoggerName)
}

func TestZapLoggerWith(t *testing.T) {
	logger, obs := NewTestLogger()

	withFields := logger.With("key", "value")
	require.IsType(t, &ZapLogger{}, withFields)

	withFields.Info("test message")
	require.Equal(t, 1, obs.Len())
	entry := obs.All()[0]
	assert.Equal(t, "test message", entry.Message)
	assert.Contains(t, entry.Context, zap.String("key", "value"))
}
