package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MidgardScene")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardScene")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "midgard-scene")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "midgard-scene")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if c.Animation.MaxBones <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("animation: max_bones must be positive, got %d", c.Animation.MaxBones))
	}
	if c.Shadows.Enabled {
		if c.Shadows.Resolution <= 0 || c.Shadows.PointResolution <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("shadows: resolutions must be positive"))
		}
		if c.Shadows.Near <= 0 || c.Shadows.Far <= c.Shadows.Near {
			errs = multierr.Append(errs, fmt.Errorf("shadows: need 0 < near < far, got %v..%v", c.Shadows.Near, c.Shadows.Far))
		}
	}
	if c.PostFX.BlurIterations < 0 {
		errs = multierr.Append(errs, fmt.Errorf("postfx: blur_iterations must not be negative"))
	}
	return errs
}

// Path resolves a shader stage path against the shader directory.
func (s ShaderConfig) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Dir, p)
}
