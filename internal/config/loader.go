package config

import (
	"fmt"
	"io"

	"github.com/jinzhu/configor"
	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration. Values come from, in increasing
// precedence, the struct defaults, the YAML file at path (or the default
// config file when path is empty) and the environment.
func Load(path string) (*Config, error) {
	file, err := FindConfig(path)
	if err != nil {
		return nil, err
	}

	// configor complains about files that don't exist, so only pass one we
	// found
	var files []string
	if file != "" {
		files = append(files, file)
	}
	return load(files...)
}

// FromEnvironment builds the configuration from the struct defaults and the
// environment alone, ignoring any config file
func FromEnvironment() (*Config, error) {
	return load()
}

func load(files ...string) (*Config, error) {
	loader := configor.New(&configor.Config{
		ENVPrefix:            "ANVIL",
		Silent:               true,
		ErrorOnUnmatchedKeys: true,
	})

	var cfg Config
	if err := loader.Load(&cfg, files...); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Write renders cfg as YAML in the config file layout
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
