// Package config loads the silo CLI's config.yaml using Viper: a YAML
// file in a resolved config directory, written with defaults on first
// run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
	fileExt  = "config.yaml"

	// KeyDataDir names the data directory setting.
	KeyDataDir = "data_dir"
	// KeyLogLevel names the console log level setting.
	KeyLogLevel = "log_level"

	defaultLogLevel = "warn"
)

const defaultYAML = `# silo CLI configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Console log level: debug, info, warn, error, off
log_level: warn
`

// Load reads config.yaml from configDir, creating the directory and a
// default config.yaml on first run. A missing config.yaml is not an error.
func Load(configDir string) (*viper.Viper, error) {
	if err := EnsureDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// EnsureDir creates configDir if it does not exist.
func EnsureDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

func ensureDefaultFile(configDir string) error {
	path := filepath.Join(configDir, fileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultYAML), 0o644)
}
