package logger

import (
	"testing"

	"github.com/dad1755/ktransport/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_Development(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})

	assert.ErrorContains(t, err, `parse log level "loud"`)
}
