package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want zapcore.Level
	}{
		{"unset", "", zapcore.InfoLevel},
		{"numeric debug", "-1", zapcore.DebugLevel},
		{"numeric error", "2", zapcore.ErrorLevel},
		{"named warn", "warn", zapcore.WarnLevel},
		{"garbage", "loud", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			assert.Equal(t, tt.want, logLevelFromEnv())
		})
	}
}

func TestNewLogger_ReplacesGlobals(t *testing.T) {
	t.Setenv("LOG_LEVEL", "-1")

	logger, undo := NewLogger()
	assert.NotNil(t, logger)
	assert.Same(t, logger, zap.L())
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	undo()
	assert.NotSame(t, logger, zap.L())
}
