package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/aico/internal/app/modelslist"
	"github.com/slok/aico/internal/printer"
)

type ModelsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	provider string
	format   string
}

// NewModelsCommand returns the models command.
func NewModelsCommand(rootCmd *RootCommand, app *kingpin.Application) *ModelsCommand {
	c := &ModelsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("models", "List the models of the active provider.")
	c.Cmd.Flag("provider", "Override the configured AI provider.").EnumVar(&c.provider, "ollama", "openai", "anthropic", "lmstudio")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ModelsCommand) Name() string { return c.Cmd.FullCommand() }

func (c ModelsCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.loadConfig(c.provider, "")
	if err != nil {
		return err
	}

	aiCli, err := c.rootCmd.newAIClient(*cfg)
	if err != nil {
		return err
	}

	svc, err := modelslist.NewService(modelslist.ServiceConfig{
		Client: aiCli,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	models, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("could not list models: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if len(models) == 0 {
		return p.PrintMessage("No models found.")
	}

	if err := p.PrintModelList(models); err != nil {
		return fmt.Errorf("could not print models: %w", err)
	}

	return nil
}
