// Package config handles ternstore configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the ternstore configuration
type Config struct {
	// DataDir is the directory holding the BadgerDB files.
	DataDir string `toml:"data_dir"`

	// ListenAddr is the address the HTTP endpoint binds to.
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		DataDir:    "./ternstore_data",
		ListenAddr: "localhost:8080",
	}
}

// Load reads a TOML configuration file, filling missing fields with
// defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = Default().ListenAddr
	}

	return cfg, nil
}
