package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working and config directories.
const FileName = "terrain.yaml"

// EnvConfig names a config file when no -config flag is given.
const EnvConfig = "QUADSPHERE_CONFIG"

// Load loads configuration with priority: defaults < file < flags. The result
// is validated; data file paths in the file are resolved against its directory.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("%s: %w", configPath, err)
		}
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing candidate: $QUADSPHERE_CONFIG,
// ./terrain.yaml, then the user config directory.
func findConfigFile() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	for _, path := range []string{FileName, DefaultPath()} {
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
		return filepath.Join(home, "Library", "Application Support", "Quadsphere")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Quadsphere")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "quadsphere")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "quadsphere")
	}
}

// DefaultPath is where Save writes.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), FileName)
}

// loadFromFile merges a YAML file into cfg. Unknown keys are rejected and an
// empty file leaves cfg untouched.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return nil
}

// resolvePaths makes relative heightmap and splatmap paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.Height.Heightmap)
	resolve(&c.Height.Detail)
	for i := range c.Texture.Splatmaps {
		resolve(&c.Texture.Splatmaps[i])
	}
}
