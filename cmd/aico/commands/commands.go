package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/ai/anthropic"
	"github.com/slok/aico/internal/ai/ollama"
	"github.com/slok/aico/internal/ai/openai"
	"github.com/slok/aico/internal/config"
	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable colored output.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultConfigPath, _ := config.DefaultPath()
	app.Flag("config", "Path to the configuration file.").Envar("AICO_CONFIG").Default(defaultConfigPath).StringVar(&c.ConfigPath)

	return c
}

// loadConfig loads the configuration applying optional provider and model
// overrides on top of the file.
func (c *RootCommand) loadConfig(providerOverride, modelOverride string) (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}

	if providerOverride != "" {
		cfg.Provider = config.Provider(providerOverride)
	}

	if modelOverride != "" {
		switch cfg.Provider {
		case config.ProviderOllama:
			cfg.Ollama.Model = modelOverride
		case config.ProviderOpenAI:
			cfg.OpenAI.Model = modelOverride
		case config.ProviderAnthropic:
			cfg.Anthropic.Model = modelOverride
		case config.ProviderLMStudio:
			cfg.LMStudio.Model = modelOverride
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newAIClient builds the AI client for the configured provider. LM Studio
// exposes an OpenAI compatible API so it reuses that client.
func (c *RootCommand) newAIClient(cfg config.Config) (ai.Client, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.NewClient(ollama.ClientConfig{
			Endpoint: cfg.Ollama.Endpoint,
			Model:    cfg.Ollama.Model,
			Logger:   c.Logger,
		})

	case config.ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required: %w", model.ErrNotValid)
		}
		return openai.NewClient(openai.ClientConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			Logger:  c.Logger,
		})

	case config.ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required: %w", model.ErrNotValid)
		}
		return anthropic.NewClient(anthropic.ClientConfig{
			APIKey: cfg.Anthropic.APIKey,
			Model:  cfg.Anthropic.Model,
			Logger: c.Logger,
		})

	case config.ProviderLMStudio:
		return openai.NewClient(openai.ClientConfig{
			BaseURL: cfg.LMStudio.Endpoint,
			Model:   cfg.LMStudio.Model,
			Logger:  c.Logger,
		})
	}

	return nil, fmt.Errorf("unknown provider %q: %w", cfg.Provider, model.ErrNotValid)
}
