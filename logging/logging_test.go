package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerIsShared(t *testing.T) {
	assert.Same(t, InitLogger(), InitLogger())
}

func TestSetLevel(t *testing.T) {
	defer func() { _ = SetLevel("info") }()

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, Level())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, Level())
}
