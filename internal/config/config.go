// Package config reads the namcore configuration file
// (~/.config/namcore/config.yaml).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPath overrides the location of the configuration file.
	EnvPath = "NAMCORE_CONFIG"
	// EnvPluginModel names the model the plugin loads when none is stored
	// in the host session.
	EnvPluginModel = "NAM_PLUGIN_MODEL"
)

// Config holds defaults for the CLI, server and plugin. Pointer fields
// distinguish "not set" from zero values.
type Config struct {
	ModelsDir string `yaml:"models_dir"`
	BlockSize *int64 `yaml:"block_size"`
	FastTanh  *bool  `yaml:"fast_tanh"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`

	PluginModel string `yaml:"plugin_model"`
}

// Path returns the configuration file location, or "" when no user config
// directory is known.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "namcore", "config.yaml")
}

// Load reads the configuration file. A missing file yields a zero Config.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.BlockSize != nil && *cfg.BlockSize <= 0 {
		return Config{}, fmt.Errorf("config %s: block_size must be positive, got %d", path, *cfg.BlockSize)
	}
	return cfg, nil
}

// PluginModelPath is the model the plugin starts with: NAM_PLUGIN_MODEL wins
// over plugin_model.
func (c Config) PluginModelPath() string {
	if p := os.Getenv(EnvPluginModel); p != "" {
		return p
	}
	return c.PluginModel
}
