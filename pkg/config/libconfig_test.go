package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/config"
)

// Env-driven loading cannot run in parallel with sibling tests that also
// mutate the process environment.

func TestLoad_RequiresLibraryPath(t *testing.T) {
	t.Setenv("BRAINDRIVE_LIBRARY_PATH", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.ErrorIs(t, err, config.ErrLibraryPathRequired)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BRAINDRIVE_LIBRARY_PATH", "/srv/library")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/library", cfg.Library.Path)
	assert.True(t, cfg.Library.RequireUserHeader)
	assert.Empty(t, cfg.Library.ServiceToken)
	assert.Empty(t, cfg.Library.BaseTemplatePath)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BRAINDRIVE_LIBRARY_PATH", "/srv/library")
	t.Setenv("BRAINDRIVE_LIBRARY_SERVICE_TOKEN", "  secret  ")
	t.Setenv("BRAINDRIVE_SERVER_ADDR", ":9000")
	t.Setenv("BRAINDRIVE_LOG_LEVEL", "debug")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Library.ServiceToken)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotenvFallback(t *testing.T) {
	t.Setenv("BRAINDRIVE_LIBRARY_PATH", "")

	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	content := "BRAINDRIVE_LIBRARY_PATH=/from/dotenv\nBRAINDRIVE_SERVER_ADDR=:9100\n"
	require.NoError(t, os.WriteFile(dotenv, []byte(content), 0o644))

	cfg, err := config.Load(dotenv)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", cfg.Library.Path)
	assert.Equal(t, ":9100", cfg.Server.Addr)
}

func TestLoad_EnvironmentBeatsDotenv(t *testing.T) {
	t.Setenv("BRAINDRIVE_LIBRARY_PATH", "/from/env")

	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("BRAINDRIVE_LIBRARY_PATH=/from/dotenv\n"), 0o644))

	cfg, err := config.Load(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Library.Path)
}
