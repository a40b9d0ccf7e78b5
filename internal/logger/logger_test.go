package logger_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/logger"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, logger.Init(logger.Config{Level: "DEBUG", Format: "json", Output: path}))
	t.Cleanup(func() { _ = logger.Init(logger.Config{Level: "INFO", Format: "text", Output: "stderr"}) })

	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "value")
}

func TestInitRejectsUnwritablePath(t *testing.T) {
	err := logger.Init(logger.Config{Output: filepath.Join(t.TempDir(), "missing-dir", "out.log")})
	assert.Error(t, err)
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	logger.SetLevel("DEBUG")
	require.True(t, logger.L().Enabled(nil, slog.LevelDebug))

	logger.SetLevel("not-a-level")
	assert.True(t, logger.L().Enabled(nil, slog.LevelDebug), "invalid level must not change current level")

	logger.SetLevel("ERROR")
	assert.False(t, logger.L().Enabled(nil, slog.LevelWarn))
}

func TestSetFormatIgnoresInvalid(t *testing.T) {
	logger.SetFormat("json")
	logger.SetFormat("not-a-format")
	logger.SetFormat("text")
	assert.NotNil(t, logger.L())
}

func TestLReturnsUsableLogger(t *testing.T) {
	require.NoError(t, logger.Init(logger.Config{Level: "INFO", Format: "text", Output: "stderr"}))
	assert.NotPanics(t, func() {
		logger.Debug("debug")
		logger.Info("info")
		logger.Warn("warn")
		logger.Error("error")
	})
}
