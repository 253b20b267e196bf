package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDir points the package at a temporary log directory and resets global state
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test-component")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "test-component", logger.component)
	assert.NotEmpty(t, logger.sessionID)
	require.NotEmpty(t, logger.logPath)

	_, err = os.Stat(logger.logPath)
	assert.NoError(t, err, "log file should exist")
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)
	defer logger.Close()

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	content, err := os.ReadFile(logger.logPath)
	require.NoError(t, err)

	for _, pattern := range []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 123",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	} {
		assert.Contains(t, string(content), pattern)
	}
}

func TestMultipleComponents(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("component1")
	require.NoError(t, err)
	defer logger1.Close()

	logger2, err := NewLogger("component2")
	require.NoError(t, err)
	defer logger2.Close()

	assert.Equal(t, logger1.sessionID, logger2.sessionID)
	assert.Equal(t, logger1.logPath, logger2.logPath)

	logger1.Infof("Message from component1")
	logger2.Infof("Message from component2")

	content, err := os.ReadFile(logger1.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[component1]")
	assert.Contains(t, string(content), "[component2]")
}

func TestWriterLogger(t *testing.T) {
	t.Run("writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWriterLogger("registry", &buf)

		logger.Warnf("tool %s is already registered", "t1")

		assert.Contains(t, buf.String(), "[registry] [WARN] tool t1 is already registered")
		assert.Empty(t, logger.LogPath())
	})

	t.Run("With derives a sub-component", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWriterLogger("toolbox", &buf).With("form")

		logger.Errorf("boom")

		assert.Contains(t, buf.String(), "[toolbox.form] [ERROR] boom")
	})

	t.Run("Discard drops entries", func(t *testing.T) {
		logger := Discard()
		logger.Infof("nothing")
		assert.NotNil(t, logger.Writer())
	})
}

func TestGetSessionID(t *testing.T) {
	setupTestDir(t)

	id1 := GetSessionID()
	id2 := GetSessionID()

	assert.Equal(t, id1, id2)
	assert.NotEmpty(t, id1)
}

func TestGetLogDirectory(t *testing.T) {
	setupTestDir(t)

	dir, err := GetLogDirectory()
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "second close should be safe")
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)
	defer logger.Close()

	fileName := filepath.Base(logger.logPath)
	require.True(t, strings.HasSuffix(fileName, "-toolbox.log"), fileName)

	sessionPart := strings.TrimSuffix(fileName, "-toolbox.log")
	assert.Contains(t, sessionPart, "-", "session ID should be a UUID")
}
