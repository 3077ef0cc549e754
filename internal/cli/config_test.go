package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadConfig(viper.New(), "")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server)
	assert.Equal(t, "github", cfg.Provider)
	assert.Equal(t, filepath.Join(home, ".psecret", "session.json"), cfg.SessionPath)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.PrivateKey)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://secrets.example.com\nprovider: google\n"), 0o600))

	t.Setenv("PSECRET_PROVIDER", "github")
	t.Setenv("PSECRET_PRIVATE_KEY", "pk")

	cfg, err := LoadConfig(viper.New(), path)

	require.NoError(t, err)
	assert.Equal(t, "https://secrets.example.com", cfg.Server)
	assert.Equal(t, "github", cfg.Provider)
	assert.Equal(t, "pk", cfg.PrivateKey)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server)
}

func TestLoadConfig_Malformed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(viper.New(), path)

	assert.ErrorContains(t, err, "failed to read config file")
}
