package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the default directory name for anvil configs
	DefaultConfigDir = ".anvil"
	// DefaultConfigName is the default config file name
	DefaultConfigName = "config.yaml"
)

// GetConfigDir returns the anvil configuration directory path
// Defaults to ~/.anvil/ unless overridden by ANVIL_CONFIG_DIR
func GetConfigDir() (string, error) {
	if dir := os.Getenv("ANVIL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// FindConfig resolves the config file to load. An explicit name must exist.
// With no name the default file is used when present; a missing default is
// not an error and yields "".
func FindConfig(name string) (string, error) {
	if name != "" {
		if _, err := os.Stat(name); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("config file not found: %s", name)
			}
			return "", fmt.Errorf("failed to stat config file %s: %w", name, err)
		}
		return name, nil
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, DefaultConfigName)
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	return configPath, nil
}
