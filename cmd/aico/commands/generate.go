package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/aico/internal/app/generate"
	"github.com/slok/aico/internal/metrics"
	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/task"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	provider     string
	model        string
	systemPrompt string
	prompt       []string
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("generate", "Run a single generation and print the result.")
	c.Cmd.Arg("prompt", "The prompt to send.").Required().StringsVar(&c.prompt)
	c.Cmd.Flag("provider", "Override the configured AI provider.").EnumVar(&c.provider, "ollama", "openai", "anthropic", "lmstudio")
	c.Cmd.Flag("model", "Override the configured model.").StringVar(&c.model)
	c.Cmd.Flag("system", "System prompt prepended to the request.").StringVar(&c.systemPrompt)

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.loadConfig(c.provider, c.model)
	if err != nil {
		return err
	}

	aiCli, err := c.rootCmd.newAIClient(*cfg)
	if err != nil {
		return err
	}

	registry, err := task.NewRegistry(task.RegistryConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task registry: %w", err)
	}

	runner, err := task.NewRunner(task.RunnerConfig{
		Registry:    registry,
		WorkTimeout: cfg.GenerationTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task runner: %w", err)
	}

	svc, err := generate.NewService(generate.ServiceConfig{
		Registry:     registry,
		Runner:       runner,
		Abort:        task.NewController(),
		Client:       aiCli,
		SystemPrompt: c.systemPrompt,
		Metrics:      metrics.Noop,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create generation service: %w", err)
	}

	// Subscribe before submitting so the terminal notification can't be
	// missed.
	changes := registry.Subscribe(16)
	defer registry.Unsubscribe(changes)

	id := svc.Submit(ctx, strings.Join(c.prompt, " "))

	t, err := c.waitTerminal(ctx, registry, changes, id)
	if err != nil {
		return err
	}

	switch t.Status {
	case model.TaskStatusCompleted:
		ch, ok := registry.TakeResult(id)
		if !ok {
			return fmt.Errorf("completed task has no result")
		}
		res, ok := <-ch
		if !ok || res == nil {
			return fmt.Errorf("completed task has no result")
		}
		fmt.Fprintln(c.rootCmd.Stdout, res.Content)
		logger.Debugf("Used %d tokens", res.Usage.TotalTokens)

	case model.TaskStatusFailed:
		return fmt.Errorf("generation failed: %s", t.Error)

	case model.TaskStatusCancelled:
		fmt.Fprintln(c.rootCmd.Stderr, "Cancelled.")
		// Conventional interrupt exit code.
		os.Exit(130)
	}

	return nil
}

// waitTerminal blocks until the task reaches a terminal status. A periodic
// re-check backstops dropped notifications.
func (c GenerateCommand) waitTerminal(ctx context.Context, registry *task.Registry, changes <-chan model.TaskID, id model.TaskID) (*model.Task, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// On context cancellation the worker finishes the task as cancelled, so
	// keep waiting for the terminal status instead of bailing out.
	done := ctx.Done()

	for {
		t, err := registry.Get(id)
		if err != nil {
			return nil, fmt.Errorf("could not get task: %w", err)
		}
		if t.Status.Terminal() {
			return t, nil
		}

		select {
		case <-done:
			done = nil
		case <-changes:
		case <-ticker.C:
		}
	}
}
