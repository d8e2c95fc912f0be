package logger_test

import (
	"testing"

	"github.com/dom/quiz-engine/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersWriteToSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	logger.Debug("dropped")
	logger.Info("Game created", zap.String("gameId", "g1"))
	logger.Warn("Relay lagging")
	logger.Error("Save failed")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "Game created", entries[0].Message)
	assert.Equal(t, "g1", entries[0].ContextMap()["gameId"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestInit(t *testing.T) {
	prev := logger.L()
	t.Cleanup(func() { logger.Set(prev) })

	tests := []struct {
		env, level string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"production", "warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"development", "debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production", "nonsense", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			require.NoError(t, logger.Init(tt.env, tt.level))
			assert.True(t, logger.L().Core().Enabled(tt.enabled))
			assert.False(t, logger.L().Core().Enabled(tt.disabled))
		})
	}
}
