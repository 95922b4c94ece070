package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.RegistryPath)
	assert.NotEmpty(t, cfg.OAuth.AuthorizeURL)
	assert.NotEmpty(t, cfg.OAuth.TokenURL)
}

func TestLoadOverridesOnlyProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": "0.0.0.0:9000",
		"log_level": "debug"
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotEmpty(t, cfg.ReposDir)
	assert.NotEmpty(t, cfg.CredentialPath)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen_addr": "0.0.0.0:9000"}`), 0644))

	t.Setenv("WORKSPACED_LISTEN_ADDR", "127.0.0.1:7777")
	t.Setenv("WORKSPACED_LOG_LEVEL", "warning")
	t.Setenv("WORKSPACED_SHELL", "/bin/zsh")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7777", cfg.ListenAddr)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, "/bin/zsh", cfg.Shell)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:4242"
	cfg.Model = "claude-3-5-haiku-20241022"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4242", loaded.ListenAddr)
	assert.Equal(t, "claude-3-5-haiku-20241022", loaded.Model)
}
