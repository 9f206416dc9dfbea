package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slok/aico/internal/app/generate"
	"github.com/slok/aico/internal/app/modelslist"
	"github.com/slok/aico/internal/metrics"
	"github.com/slok/aico/internal/printer"
	"github.com/slok/aico/internal/task"
	"github.com/slok/aico/internal/ui"
)

type ChatCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	provider      string
	model         string
	systemPrompt  string
	noSpinner     bool
	metricsListen string
}

// NewChatCommand returns the chat command.
func NewChatCommand(rootCmd *RootCommand, app *kingpin.Application) *ChatCommand {
	c := &ChatCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("chat", "Start an interactive session.").Default()
	c.Cmd.Flag("provider", "Override the configured AI provider.").EnumVar(&c.provider, "ollama", "openai", "anthropic", "lmstudio")
	c.Cmd.Flag("model", "Override the configured model.").StringVar(&c.model)
	c.Cmd.Flag("system", "System prompt prepended to every request.").StringVar(&c.systemPrompt)
	c.Cmd.Flag("no-spinner", "Disable the task activity spinner.").BoolVar(&c.noSpinner)
	c.Cmd.Flag("metrics-listen", "Serve Prometheus metrics on this address (e.g. :9090).").StringVar(&c.metricsListen)

	return c
}

func (c ChatCommand) Name() string { return c.Cmd.FullCommand() }

func (c ChatCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.loadConfig(c.provider, c.model)
	if err != nil {
		return err
	}

	aiCli, err := c.rootCmd.newAIClient(*cfg)
	if err != nil {
		return err
	}

	// Metrics are off unless a listen address is given.
	recorder := metrics.Recorder(metrics.Noop)
	if c.metricsListen != "" {
		recorder = c.serveMetrics(ctx)
	}

	// Task coordination stack.
	registry, err := task.NewRegistry(task.RegistryConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task registry: %w", err)
	}

	abort := task.NewController()

	runner, err := task.NewRunner(task.RunnerConfig{
		Registry:    registry,
		WorkTimeout: cfg.GenerationTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task runner: %w", err)
	}

	// Application services.
	generateSvc, err := generate.NewService(generate.ServiceConfig{
		Registry:     registry,
		Runner:       runner,
		Abort:        abort,
		Client:       aiCli,
		SystemPrompt: c.systemPrompt,
		Metrics:      recorder,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create generation service: %w", err)
	}

	modelsSvc, err := modelslist.NewService(modelslist.ServiceConfig{
		Client: aiCli,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create models service: %w", err)
	}

	// Terminal UI.
	input, err := ui.NewReadlineSource(ui.ReadlineConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create input source: %w", err)
	}
	defer input.Close()

	output := ui.NewOutput(c.rootCmd.Stdout, c.rootCmd.NoColor)

	session, err := ui.NewSession(ui.SessionConfig{
		Registry:   registry,
		Dispatcher: generateSvc,
		Models:     modelsSvc,
		Costs:      aiCli,
		Input:      input,
		Output:     output,
		Printer:    printer.NewTablePrinter(c.rootCmd.Stdout),
		Spinner:    !c.noSpinner,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	output.Noticef("aico (%s, model %s)", cfg.Provider, cfg.ActiveModel())

	err = session.Run(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("session failed: %w", err)
	}

	return nil
}

// serveMetrics starts the Prometheus endpoint and returns its recorder. The
// server shuts down when the command context ends.
func (c ChatCommand) serveMetrics(ctx context.Context) metrics.Recorder {
	logger := c.rootCmd.Logger

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: c.metricsListen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Infof("Serving metrics on %s", c.metricsListen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server failed: %s", err)
		}
	}()

	return recorder
}
