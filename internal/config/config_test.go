package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "llama3.2:3b", cfg.Install.Model)
	assert.Equal(t, "kitt-ai", cfg.Install.Profile)
	assert.Contains(t, cfg.Install.ModelfileURL, "Modelfile")
	assert.Contains(t, cfg.Install.EntryScriptURL, "main.py")
	assert.Equal(t, 5*time.Minute, cfg.Chat.QueryTimeout)
	assert.True(t, cfg.Chat.PersistTranscript)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitt", "config.yaml")

	cfg := Default()
	cfg.Install.Model = "llama3.1:8b"
	cfg.Install.WorkDir = "/srv/kitt"
	cfg.Chat.QueryTimeout = 90 * time.Second
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.APIKey = "phc_test"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "install:\n  model: custom-model\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.Install.Model)
	assert.Equal(t, "kitt-ai", cfg.Install.Profile, "unset fields fall back to defaults")
	assert.Equal(t, 5*time.Minute, cfg.Chat.QueryTimeout)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("install: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Default().Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
