package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathExplicitWins(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := ResolvePath("/tmp/custom.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.json", path)
}

func TestResolvePathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "drona", "config.json"), path)
}

func TestResolvePathHomeFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	path, err := ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "drona", "config.json"), path)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.False(t, loaded.Exists)
	assert.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	assert.Contains(t, loaded.Warnings[len(loaded.Warnings)-1].Message, "using defaults")
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api": {"assistant_id": "guru"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Exists)
	assert.Equal(t, "guru", loaded.Config.API.AssistantID)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api": {"timeout_ms": -5}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadCredentialFromEnvFile(t *testing.T) {
	t.Setenv("DRONA_USER_ID", "")
	t.Setenv("DRONA_TOKEN", "")
	require.NoError(t, os.Unsetenv("DRONA_USER_ID"))
	require.NoError(t, os.Unsetenv("DRONA_TOKEN"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRONA_USER_ID=u-1\nDRONA_TOKEN=tok\n"), 0o600))

	cred, err := LoadCredential(path)
	require.NoError(t, err)
	assert.Equal(t, Credential{UserID: "u-1", Token: "tok"}, cred)
}

func TestLoadCredentialMissingToken(t *testing.T) {
	t.Setenv("DRONA_USER_ID", "u-1")
	t.Setenv("DRONA_TOKEN", "")

	_, err := LoadCredential(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}
