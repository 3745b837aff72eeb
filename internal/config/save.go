package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SavePath returns the file Load would read next: the -config path, an
// existing config file, or config.yaml in the user's config directory.
func SavePath() string {
	if path := ConfigPath(); path != "" {
		return path
	}
	if path := findConfigFile(); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes the config to SavePath and returns the path written.
func (c *Config) Save() (string, error) {
	path := SavePath()
	return path, c.SaveTo(path)
}

// SaveTo writes the config as YAML to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
