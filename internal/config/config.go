// Package config loads orgfs's on-disk configuration: remote credentials,
// sync tuning, mount defaults, and logging, layered file-then-environment
// per the ambient configuration concern every mode of the teacher carries.
//
// Grounded on _examples/jra3-linear-fuse/internal/config/config.go's
// yaml.v3-backed Config/DefaultConfig/Load/LoadWithEnv shape, generalized
// from a single Linear API key to a remote-agnostic credentials file, and
// promoting the original Rust implementation's hardcoded POLL_INTERVAL/
// TOUCH_DELAY constants to configuration (SPEC_FULL.md §10).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// CredentialsFile points at the remote client's service-account or
	// OAuth token file; the concrete remote.Client implementation decides
	// how to parse it.
	CredentialsFile string      `yaml:"credentials_file"`
	Sync            SyncConfig  `yaml:"sync"`
	Mount           MountConfig `yaml:"mount"`
	Log             LogConfig   `yaml:"log"`
}

type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	TouchDelay   time.Duration `yaml:"touch_delay"`
}

type MountConfig struct {
	DefaultPath string `yaml:"default_path"`
	AllowOther  bool   `yaml:"allow_other"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			PollInterval: 120 * time.Second,
			TouchDelay:   1 * time.Second,
		},
		Mount: MountConfig{
			DefaultPath: "",
			AllowOther:  false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function. This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override config file
	if creds := getenv("ORGFS_CREDENTIALS_FILE"); creds != "" {
		cfg.CredentialsFile = creds
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "orgfs", "config.yaml")
	}

	// Fall back to ~/.config
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "orgfs", "config.yaml")
}
