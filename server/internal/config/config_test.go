package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/server/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Store.AutoMigrate)
}

func TestLoadWithNoFileFallsBackToDefaults(t *testing.T) {
	chdirToTempDir(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().HTTP.Addr, cfg.HTTP.Addr)
}

// chdirToTempDir switches into a fresh empty directory for the duration of
// the test, restoring the original working directory on cleanup: Load("")
// searches "." for a config file, so a no-file test must not see the repo's
// own working tree.
func chdirToTempDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadFromExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
store:
  driver: memory
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	// Unset fields keep their defaults.
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9090\"\n"), 0644))

	t.Setenv("INKFS_HTTP_ADDR", ":7070")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoadMissingExplicitFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadShutdownTimeoutDefault(t *testing.T) {
	chdirToTempDir(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
}
