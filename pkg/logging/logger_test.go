package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesLeveledEntries(t *testing.T) {
	logger, err := NewLogger("test-component")
	require.NoError(t, err)
	defer logger.Close()

	logger.Infof("hello %s", "world")
	logger.Errorf("boom")

	data, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[test-component] [INFO] hello world")
	assert.Contains(t, content, "[test-component] [ERROR] boom")
}

func TestLoggerSharedSession(t *testing.T) {
	a, err := NewLogger("comp-a")
	require.NoError(t, err)
	defer a.Close()

	b, err := NewLogger("comp-b")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.SessionID(), b.SessionID())
	assert.Equal(t, a.LogPath(), b.LogPath())
	assert.True(t, strings.HasSuffix(a.LogPath(), ".log"))
}

func TestLoggerCloseIdempotent(t *testing.T) {
	logger, err := NewLogger("closer")
	require.NoError(t, err)

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}
