package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	configDirName = ".psecret"
	envPrefix     = "PSECRET"
)

// Config is the client configuration. Sources in order of precedence:
// flags, PSECRET_* environment variables, ~/.psecret/config.yaml, defaults.
type Config struct {
	Server      string `mapstructure:"server"`
	Provider    string `mapstructure:"provider"`
	SessionPath string `mapstructure:"session_path"`
	Verbose     bool   `mapstructure:"verbose"`

	// PrivateKey is read from PSECRET_PRIVATE_KEY only. When empty the
	// user is prompted.
	PrivateKey string `mapstructure:"-"`
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, configDirName)
}

// LoadConfig reads configPath, or ~/.psecret/config.yaml when configPath is empty.
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	dir := defaultDir()

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("provider", "github")
	v.SetDefault("session_path", filepath.Join(dir, "session.json"))
	v.SetDefault("verbose", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("private_key")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debug("No config file found, using defaults")
	} else {
		logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.PrivateKey = v.GetString("private_key")

	return &cfg, nil
}
