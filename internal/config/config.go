// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/registry"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	// DefaultModel is used when no model is selected on the command line.
	DefaultModel string `toml:"default_model"`

	// Ollama holds local backend settings.
	Ollama OllamaConfig `toml:"ollama"`

	// Storage holds conversation persistence settings.
	Storage StorageConfig `toml:"storage"`

	// Models extends or overrides the built-in model table. Entries are
	// matched by name; a file entry with a built-in name replaces it.
	Models []ModelEntry `toml:"models"`
}

// OllamaConfig contains local Ollama configuration.
type OllamaConfig struct {
	// URL of the Ollama server (default: http://127.0.0.1:11434)
	URL string `toml:"url"`
}

// StorageConfig contains conversation persistence configuration.
type StorageConfig struct {
	// Path to the sqlite database (default: ~/.parley/conversations.db)
	Path string `toml:"path"`
}

// ModelEntry describes one selectable model in the config file.
type ModelEntry struct {
	Name      string `toml:"name"`
	Backend   string `toml:"backend"`
	MaxTokens int    `toml:"max_tokens"`
	ModelID   string `toml:"model_id"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration. The model table mirrors
// the providers the adapters speak: OpenAI chat models with their
// context windows, the three Anthropic aliases with a conservative
// shared input budget, and common local Ollama tags.
func Default() *Config {
	return &Config{
		DefaultModel: "gpt-4",
		Ollama: OllamaConfig{
			URL: backend.DefaultOllamaURL,
		},
		Storage: StorageConfig{
			Path: "", // resolved to ~/.parley/conversations.db at load
		},
		Models: []ModelEntry{
			{Name: "gpt-4", Backend: "openai", MaxTokens: 8192},
			{Name: "gpt-3.5-turbo", Backend: "openai", MaxTokens: 4096},
			{Name: "opus", Backend: "anthropic", MaxTokens: 100000, ModelID: "claude-3-opus-20240229"},
			{Name: "sonnet", Backend: "anthropic", MaxTokens: 100000, ModelID: "claude-3-sonnet-20240229"},
			{Name: "haiku", Backend: "anthropic", MaxTokens: 100000, ModelID: "claude-3-haiku-20240307"},
			{Name: "llama3", Backend: "ollama", MaxTokens: 8192},
			{Name: "mistral", Backend: "ollama", MaxTokens: 8192},
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the parley configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
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

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.parley/config.toml, falling back to
// built-in defaults when the file is absent. Environment overrides are
// applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path. A missing
// file is not an error; the defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		var file Config
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg.merge(&file)
	}

	cfg.ApplyEnvOverrides()

	if cfg.Storage.Path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = filepath.Join(dir, "conversations.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge folds file values over the defaults. Model entries are matched
// by name: a file entry with a known name replaces the built-in, an
// unknown name extends the table.
func (c *Config) merge(file *Config) {
	if file.DefaultModel != "" {
		c.DefaultModel = file.DefaultModel
	}
	if file.Ollama.URL != "" {
		c.Ollama.URL = file.Ollama.URL
	}
	if file.Storage.Path != "" {
		c.Storage.Path = file.Storage.Path
	}

	for _, entry := range file.Models {
		replaced := false
		for i := range c.Models {
			if c.Models[i].Name == entry.Name {
				c.Models[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			c.Models = append(c.Models, entry)
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	// PARLEY_MODEL
	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		c.DefaultModel = model
	}

	// PARLEY_OLLAMA_URL
	if url := os.Getenv("PARLEY_OLLAMA_URL"); url != "" {
		c.Ollama.URL = url
	}

	// PARLEY_DB_PATH
	if path := os.Getenv("PARLEY_DB_PATH"); path != "" {
		c.Storage.Path = path
	}
}

// Validate checks the configuration for problems that would fail every
// turn. Registry construction re-checks the model table; this catches
// the default model pointing at nothing.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return backend.ConfigError("default_model is empty")
	}
	for _, m := range c.Models {
		if m.Name == c.DefaultModel {
			return nil
		}
	}
	return backend.ConfigError("default_model " + c.DefaultModel + " is not in the model table")
}

// ModelConfigs converts the model table for registry construction.
func (c *Config) ModelConfigs() []registry.ModelConfig {
	out := make([]registry.ModelConfig, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, registry.ModelConfig{
			Name:      m.Name,
			Backend:   registry.Kind(m.Backend),
			MaxTokens: m.MaxTokens,
			ModelID:   m.ModelID,
		})
	}
	return out
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials holds the API keys read from the environment. Keys are
// read once at startup and passed into adapter construction; a missing
// key only fails a turn that actually needs it.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
}

// LoadCredentials reads API keys from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
	}
}
