package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	quiet, err := New(false, false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zap.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zap.InfoLevel))

	loud, err := New(true, true)
	require.NoError(t, err)
	assert.True(t, loud.Core().Enabled(zap.DebugLevel))
}
