// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for loom.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file location (in order of precedence):
//   - ~/.loom/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete loom configuration.
type Config struct {
	Version string `toml:"version"`

	// DataDir is where the key-value store and lorebook drop directory
	// live (empty = ~/.loom).
	DataDir string `toml:"data_dir"`

	Store      StoreConfig      `toml:"store"`
	Connection ConnectionConfig `toml:"connection"`
	Prompt     PromptConfig     `toml:"prompt"`
	Lorebook   LorebookConfig   `toml:"lorebook"`
	UI         UIConfig         `toml:"ui"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Preference is the backend order to try: "sqlite", "file".
	Preference []string `toml:"preference"`
}

// ConnectionConfig seeds the built-in connection preset defaults.
type ConnectionConfig struct {
	// Endpoint is the completions URL the generation request is posted to.
	Endpoint string `toml:"endpoint"`
	// Model is the backend model identifier.
	Model string `toml:"model"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `toml:"api_key"`
	// TimeoutSecs bounds connection establishment only.
	TimeoutSecs int `toml:"timeout_secs"`
}

// PromptConfig tunes prompt assembly.
type PromptConfig struct {
	// ScanMessages is the lorebook trigger scan window (0 = default of 4).
	ScanMessages int `toml:"scan_messages"`
}

// LorebookConfig controls the lorebook import watcher.
type LorebookConfig struct {
	// WatchEnabled turns the drop-directory watcher on.
	WatchEnabled bool `toml:"watch_enabled"`
	// WatchDir overrides the drop directory (empty = <data_dir>/lorebooks).
	WatchDir string `toml:"watch_dir"`
	// WatchDebounceMs is the settle time before a dropped file is read.
	WatchDebounceMs int `toml:"watch_debounce_ms"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is the color theme: "dark", "light", "plain"
	Theme string `toml:"theme"`
	// Markdown renders bot replies as markdown
	Markdown bool `toml:"markdown"`
	// ShowTokens displays token counts after each reply
	ShowTokens bool `toml:"show_tokens"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Store: StoreConfig{
			Preference: []string{"sqlite", "file"},
		},

		Connection: ConnectionConfig{
			Endpoint:    "http://127.0.0.1:11434/api/generate",
			Model:       "llama3",
			TimeoutSecs: 30,
		},

		Prompt: PromptConfig{
			ScanMessages: 0, // assembly default
		},

		Lorebook: LorebookConfig{
			WatchEnabled:    true,
			WatchDebounceMs: 300,
		},

		UI: UIConfig{
			Theme:      "dark",
			Markdown:   true,
			ShowTokens: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the loom configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".loom"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				loadErr = fmt.Errorf("failed to load config: %w", err)
				cfg = Default()
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// SECURITY: Create file with restrictive permissions (0600 = owner read/write only)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills in any missing values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if len(c.Store.Preference) == 0 {
		c.Store.Preference = defaults.Store.Preference
	}
	if c.Connection.Endpoint == "" {
		c.Connection.Endpoint = defaults.Connection.Endpoint
	}
	if c.Connection.Model == "" {
		c.Connection.Model = defaults.Connection.Model
	}
	if c.Connection.TimeoutSecs == 0 {
		c.Connection.TimeoutSecs = defaults.Connection.TimeoutSecs
	}
	if c.Lorebook.WatchDebounceMs == 0 {
		c.Lorebook.WatchDebounceMs = defaults.Lorebook.WatchDebounceMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	for _, backend := range c.Store.Preference {
		if backend != "sqlite" && backend != "file" {
			return fmt.Errorf("unknown store backend %q (valid: sqlite, file)", backend)
		}
	}
	if c.Connection.TimeoutSecs < 0 {
		return fmt.Errorf("connection timeout_secs must not be negative, got %d", c.Connection.TimeoutSecs)
	}
	if !strings.HasPrefix(c.Connection.Endpoint, "http://") && !strings.HasPrefix(c.Connection.Endpoint, "https://") {
		return fmt.Errorf("connection endpoint must be an http(s) URL, got %q", c.Connection.Endpoint)
	}
	if c.Prompt.ScanMessages < 0 {
		return fmt.Errorf("prompt scan_messages must not be negative, got %d", c.Prompt.ScanMessages)
	}
	if c.Lorebook.WatchDebounceMs < 0 {
		return fmt.Errorf("lorebook watch_debounce_ms must not be negative, got %d", c.Lorebook.WatchDebounceMs)
	}
	switch c.UI.Theme {
	case "dark", "light", "plain":
	default:
		return fmt.Errorf("unknown theme %q (valid: dark, light, plain)", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LOOM_* environment variables over the loaded
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("LOOM_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if endpoint := os.Getenv("LOOM_ENDPOINT"); endpoint != "" {
		c.Connection.Endpoint = endpoint
	}
	if model := os.Getenv("LOOM_MODEL"); model != "" {
		c.Connection.Model = model
	}
	if key := os.Getenv("LOOM_API_KEY"); key != "" {
		c.Connection.APIKey = key
	}
	if backend := os.Getenv("LOOM_STORE"); backend != "" {
		c.Store.Preference = strings.Split(backend, ",")
	}
	if watch := os.Getenv("LOOM_WATCH"); watch != "" {
		c.Lorebook.WatchEnabled = watch == "1" || strings.ToLower(watch) == "true"
	}
	if scan := os.Getenv("LOOM_SCAN_MESSAGES"); scan != "" {
		if n, err := strconv.Atoi(scan); err == nil && n >= 0 {
			c.Prompt.ScanMessages = n
		}
	}
	if theme := os.Getenv("LOOM_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// ResolveDataDir expands the data directory, defaulting to the config
// directory.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return ConfigDir()
}

// ResolveWatchDir expands the lorebook drop directory.
func (c *Config) ResolveWatchDir() (string, error) {
	if c.Lorebook.WatchDir != "" {
		return c.Lorebook.WatchDir, nil
	}
	dataDir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "lorebooks"), nil
}
