// Package config handles the application configuration file. The file lives
// in the user's home directory and a missing file just means defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/aico/internal/model"
)

// Provider identifies an AI backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLMStudio  Provider = "lmstudio"
)

// Valid returns whether the provider is a known one.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderLMStudio:
		return true
	}
	return false
}

// OllamaConfig is the Ollama provider configuration.
type OllamaConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// OpenAIConfig is the OpenAI provider configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AnthropicConfig is the Anthropic provider configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LMStudioConfig is the LM Studio provider configuration. LM Studio exposes
// an OpenAI compatible API, only the endpoint differs.
type LMStudioConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// Config is the application configuration.
type Config struct {
	Provider                 Provider        `yaml:"provider"`
	Ollama                   OllamaConfig    `yaml:"ollama"`
	OpenAI                   OpenAIConfig    `yaml:"openai"`
	Anthropic                AnthropicConfig `yaml:"anthropic"`
	LMStudio                 LMStudioConfig  `yaml:"lmstudio"`
	GenerationTimeoutSeconds int             `yaml:"generation_timeout_seconds"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Provider: ProviderOllama,
		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
			Model:    "qwen2.5-coder",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-latest",
		},
		LMStudio: LMStudioConfig{
			Endpoint: "http://localhost:1234/v1",
		},
		GenerationTimeoutSeconds: 120,
	}
}

// DefaultPath returns the default configuration file path
// (~/.aico/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home: %w", err)
	}

	return filepath.Join(home, ".aico", "config.yaml"), nil
}

// Load reads the configuration from the given path. A missing file returns
// the defaults, a present one is unmarshalled on top of them so partial
// files work.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the given path, creating the directory
// when needed. The file may contain API keys so it is written 0600.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if !c.Provider.Valid() {
		return fmt.Errorf("unknown provider %q: %w", c.Provider, model.ErrNotValid)
	}

	if c.GenerationTimeoutSeconds <= 0 {
		return fmt.Errorf("generation timeout must be positive: %w", model.ErrNotValid)
	}

	return nil
}

// GenerationTimeout returns the configured generation timeout.
func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// ActiveModel returns the model configured for the active provider.
func (c Config) ActiveModel() string {
	switch c.Provider {
	case ProviderOllama:
		return c.Ollama.Model
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderLMStudio:
		return c.LMStudio.Model
	}
	return ""
}
