// Package config holds the immutable runtime configuration for kitt.
// All host-specific knobs (URLs, model names, the working directory)
// live here and are passed explicitly into the installer and the chat
// session; nothing reads them from package-level state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// InstallConfig holds the artifact sources and targets for the installer.
type InstallConfig struct {
	// WorkDir is the per-user working directory. Empty means ~/.kitt.
	WorkDir string `yaml:"work_dir,omitempty"`
	// ModelfileURL is the source of the AI-profile definition.
	ModelfileURL string `yaml:"modelfile_url"`
	// EntryScriptURL is the source of the assistant entry script.
	EntryScriptURL string `yaml:"entry_script_url"`
	// Model is the base model to pull (e.g. "llama3.2:3b").
	Model string `yaml:"model"`
	// Profile is the name of the AI profile created from the Modelfile.
	Profile string `yaml:"profile"`
	// StepTimeout bounds a single installer command. Zero disables it.
	StepTimeout time.Duration `yaml:"step_timeout,omitempty"`
}

// ChatConfig holds settings for the interactive session.
type ChatConfig struct {
	// QueryTimeout bounds a single ask against the model.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// PersistTranscript enables the SQLite transcript store.
	PersistTranscript bool `yaml:"persist_transcript"`
}

// TelemetryConfig controls anonymous usage reporting. Disabled unless
// an API key is configured.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key,omitempty"`
	Host    string `yaml:"host,omitempty"`
}

// Config is the top-level kitt configuration.
type Config struct {
	Install   InstallConfig   `yaml:"install"`
	Chat      ChatConfig      `yaml:"chat"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns a Config populated with the stock KITT sources.
func Default() *Config {
	return &Config{
		Install: InstallConfig{
			ModelfileURL:   "https://raw.githubusercontent.com/doctotypetech-dotcom/KITT/refs/heads/main/Modelfile",
			EntryScriptURL: "https://raw.githubusercontent.com/doctotypetech-dotcom/KITT/refs/heads/main/main.py",
			Model:          "llama3.2:3b",
			Profile:        "kitt-ai",
		},
		Chat: ChatConfig{
			QueryTimeout:      5 * time.Minute,
			PersistTranscript: true,
		},
	}
}

// Load reads the config file at path, filling unset fields with
// defaults. A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Install.ModelfileURL == "" {
		c.Install.ModelfileURL = def.Install.ModelfileURL
	}
	if c.Install.EntryScriptURL == "" {
		c.Install.EntryScriptURL = def.Install.EntryScriptURL
	}
	if c.Install.Model == "" {
		c.Install.Model = def.Install.Model
	}
	if c.Install.Profile == "" {
		c.Install.Profile = def.Install.Profile
	}
	if c.Chat.QueryTimeout <= 0 {
		c.Chat.QueryTimeout = def.Chat.QueryTimeout
	}
}
