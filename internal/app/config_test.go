package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvRelayURL, "")
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, defaultRelayURL, cfg.RelayURL)
	assert.Equal(t, "localhost", cfg.RelayHost())
	assert.Equal(t, "NOTICE", cfg.Logging.Level)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	body := "relay_url = \"wss://relay.example.com/ws\"\n\n[logging]\nlevel = \"DEBUG\"\ndisable = true\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, configFilename), []byte(body), 0o600))

	t.Setenv(EnvRelayURL, "")
	cfg, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.com/ws", cfg.RelayURL)
	assert.Equal(t, "relay.example.com", cfg.RelayHost())
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Disable)
	assert.Equal(t, home, cfg.Home)

	t.Setenv(EnvRelayURL, "ws://other:9000/ws")
	cfg, err = LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.RelayHost())
}

func TestLoadConfig_Invalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvRelayURL, "https://relay.example.com")
	_, err := LoadConfig(home)
	assert.Error(t, err)

	t.Setenv(EnvRelayURL, "")
	require.NoError(t, os.WriteFile(filepath.Join(home, configFilename), []byte("relay_url = ["), 0o600))
	_, err = LoadConfig(home)
	assert.Error(t, err)
}
