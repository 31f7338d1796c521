package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, ConfigLoad(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg := ConfigGet()
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "riverflow.db", cfg.DatabaseFile)
	assert.Equal(t, filepath.Join("data", "riverflow.db"), DatabasePath(cfg))
}

func TestConfigLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_file":"custom.db","http_addr":":9000"}`), 0644))

	require.NoError(t, ConfigLoad(path))

	cfg := ConfigGet()
	assert.Equal(t, "custom.db", cfg.DatabaseFile)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "./logs", cfg.LogFolder)
}

func TestConfigLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"database_type":"postgres"}`), 0644))
	assert.Error(t, ConfigLoad(path))

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	assert.Error(t, ConfigLoad(path))
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, ConfigLoad(path))

	cfg := *ConfigGet()
	cfg.LogLevel = "debug"
	require.NoError(t, ConfigSave(&cfg))

	require.NoError(t, ConfigLoad(path))
	assert.Equal(t, "debug", ConfigGet().LogLevel)
}
