package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewForEnvironment(t *testing.T) {
	t.Run("development uses console at debug", func(t *testing.T) {
		log, err := NewForEnvironment("development", "")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("production uses info", func(t *testing.T) {
		log, err := NewForEnvironment("production", "")
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("explicit level wins", func(t *testing.T) {
		log, err := NewForEnvironment("production", "error")
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
