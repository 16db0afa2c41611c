package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	quiet, closeLog, err := New(false, "")
	require.NoError(t, err)
	assert.NoError(t, closeLog())
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	loud, _, err := New(true, "")
	require.NoError(t, err)
	assert.True(t, loud.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kimai.log")

	log, closeLog, err := New(true, path)
	require.NoError(t, err)
	log.Debug("refreshing", zap.String("remote", "git@example.com:a/b.git"))
	require.NoError(t, log.Sync())
	require.NoError(t, closeLog())
	// The file handle is released.
	assert.Error(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG")
	assert.Contains(t, string(data), "refreshing")
	assert.Contains(t, string(data), "git@example.com:a/b.git")
}
