// Package ui implements the interactive terminal session: the input loop,
// slash commands, task outcome reporting and the activity spinner.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/printer"
	"github.com/slok/aico/internal/task"
)

const (
	// refreshInterval paces the terminal reconcile sweep that catches task
	// changes whose notification got dropped.
	refreshInterval = 250 * time.Millisecond
	// cleanupInterval paces old finished task eviction.
	cleanupInterval = time.Minute
	// changeBuffer is the task change subscription buffer. Notifications are
	// coalesced by the sweep, dropping under burst is fine.
	changeBuffer = 16
)

// Dispatcher submits and cancels generation tasks.
type Dispatcher interface {
	Submit(ctx context.Context, prompt string) model.TaskID
	Cancel(id model.TaskID) bool
	AbortAll()
}

// ModelLister lists the models of the active provider.
type ModelLister interface {
	List(ctx context.Context) ([]model.ModelInfo, error)
}

// CostModel resolves the pricing of a model.
type CostModel interface {
	ModelCosts(modelName string) model.ModelCosts
}

// SessionConfig is the configuration for an interactive session.
type SessionConfig struct {
	Registry   *task.Registry
	Dispatcher Dispatcher
	Models     ModelLister
	Costs      CostModel
	Input      InputSource
	Output     *Output
	Printer    printer.Printer
	// Spinner disables the activity indicator when false, useful for dumb
	// terminals and tests.
	Spinner bool
	Logger  log.Logger
}

func (c *SessionConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if c.Models == nil {
		return fmt.Errorf("model lister is required")
	}
	if c.Costs == nil {
		return fmt.Errorf("cost model is required")
	}
	if c.Input == nil {
		return fmt.Errorf("input source is required")
	}
	if c.Output == nil {
		return fmt.Errorf("output is required")
	}
	if c.Printer == nil {
		return fmt.Errorf("printer is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ui.Session"})

	return nil
}

// Session is the interactive REPL. It owns the select loop over user input,
// task change notifications and the periodic sweeps, and guarantees every
// finished task is reported exactly once.
type Session struct {
	registry   *task.Registry
	dispatcher Dispatcher
	models     ModelLister
	costs      CostModel
	input      InputSource
	output     *Output
	printer    printer.Printer
	spinner    bool
	logger     log.Logger

	// reported tracks which finished tasks were already shown to the user.
	reported map[model.TaskID]bool
	stats    model.SessionStats
}

// NewSession creates a new interactive session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Session{
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		models:     cfg.Models,
		costs:      cfg.Costs,
		input:      cfg.Input,
		output:     cfg.Output,
		printer:    cfg.Printer,
		spinner:    cfg.Spinner,
		logger:     cfg.Logger,
		reported:   map[model.TaskID]bool{},
	}, nil
}

// Run drives the session until the user quits, the input closes or the
// context is cancelled.
func (s *Session) Run(ctx context.Context) error {
	changes := s.registry.Subscribe(changeBuffer)
	defer s.registry.Unsubscribe(changes)

	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	s.output.Noticef("Interactive session started, /help lists commands.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-s.input.Events():
			if !ok {
				return nil
			}
			switch ev.Kind {
			case InputLine:
				if quit := s.handleLine(ctx, ev.Line); quit {
					return nil
				}
			case InputInterrupt:
				if quit := s.handleInterrupt(); quit {
					return nil
				}
			case InputEOF:
				return nil
			}

		case id := <-changes:
			s.reconcile(id)

		case <-refresh.C:
			s.sweep()

		case <-cleanup.C:
			if removed := s.registry.Cleanup(task.DefaultRetention); removed > 0 {
				s.logger.Debugf("Cleaned up %d old tasks", removed)
			}
		}
	}
}

// handleLine processes one input line. Returns true when the session should
// quit.
func (s *Session) handleLine(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "/") {
		return s.handleCommand(ctx, line)
	}

	id := s.dispatcher.Submit(ctx, line)
	s.output.Noticef("Task %s started.", id.Short())

	if s.spinner {
		go NewSpinner(s.output.Writer(), s.registry, id).Run()
	}

	return false
}

// handleInterrupt is Ctrl+C: with work in flight it aborts everything, on an
// idle prompt it quits.
func (s *Session) handleInterrupt() bool {
	active := s.registry.ActiveTasks()
	if len(active) == 0 {
		s.output.Noticef("Bye!")
		return true
	}

	s.dispatcher.AbortAll()
	s.output.Warningf("Cancelling %d active tasks...", len(active))

	return false
}

func (s *Session) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		s.printHelp()

	case "/tasks":
		tasks := append(s.registry.ActiveTasks(), s.registry.RecentTasks(task.DefaultRecentWindow)...)
		if len(tasks) == 0 {
			s.output.Noticef("No active or recent tasks.")
			return false
		}
		if err := s.printer.PrintTaskList(tasks); err != nil {
			s.output.Errorf("Could not print tasks: %s", err)
		}

	case "/models":
		models, err := s.models.List(ctx)
		if err != nil {
			s.output.Errorf("Could not list models: %s", err)
			return false
		}
		if err := s.printer.PrintModelList(models); err != nil {
			s.output.Errorf("Could not print models: %s", err)
		}

	case "/cancel":
		if len(args) == 0 {
			s.cancelNewest()
			return false
		}
		s.cancelOne(args[0])

	case "/stats":
		s.output.Noticef("Session: %d prompt + %d completion = %d tokens, $%.4f",
			s.stats.PromptTokens, s.stats.CompletionTokens, s.stats.TotalTokens(), s.stats.TotalCost)

	case "/quit", "/exit":
		s.output.Noticef("Bye!")
		return true

	default:
		s.output.Warningf("Unknown command %q, /help lists commands.", cmd)
	}

	return false
}

func (s *Session) printHelp() {
	s.output.Noticef(strings.TrimSpace(`
Commands:
  /tasks        List active and recent tasks.
  /models       List the models of the active provider.
  /cancel [id]  Cancel a task (short or full ID), or the newest active one.
  /stats        Show session token usage and cost.
  /help         Show this help.
  /quit         Exit the session.

Anything else is sent to the model as a prompt. Ctrl+C cancels active tasks,
Ctrl+C on an idle prompt exits.`))
}

// cancelNewest cancels the most recently created active task.
func (s *Session) cancelNewest() {
	active := s.registry.ActiveTasks()
	if len(active) == 0 {
		s.output.Noticef("No active tasks.")
		return
	}

	newest := active[0]
	for _, t := range active[1:] {
		if t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}

	s.dispatcher.Cancel(newest.ID)
	s.output.Warningf("Requested cancellation of task %s.", newest.ID.Short())
}

// cancelOne resolves a short or full task ID against the active and recent
// tasks and cancels the match.
func (s *Session) cancelOne(ref string) {
	candidates := append(s.registry.ActiveTasks(), s.registry.RecentTasks(task.DefaultRecentWindow)...)
	for _, t := range candidates {
		if string(t.ID) == ref || t.ID.Short() == ref {
			if s.dispatcher.Cancel(t.ID) {
				s.output.Warningf("Requested cancellation of task %s.", t.ID.Short())
			} else {
				s.output.Errorf("Task %s not found.", ref)
			}
			return
		}
	}

	s.output.Errorf("Task %s not found.", ref)
}

// sweep reconciles every recent task. It backstops dropped change
// notifications so no outcome is ever lost.
func (s *Session) sweep() {
	for _, t := range s.registry.RecentTasks(task.DefaultRecentWindow) {
		if t.Status.Terminal() && !s.reported[t.ID] {
			s.reconcile(t.ID)
		}
	}
}

// reconcile reports the outcome of a task once it reaches a terminal status.
// Each outcome is reported exactly once.
func (s *Session) reconcile(id model.TaskID) {
	if s.reported[id] {
		return
	}

	t, err := s.registry.Get(id)
	if err != nil {
		return
	}
	if !t.Status.Terminal() {
		return
	}

	s.reported[id] = true

	switch t.Status {
	case model.TaskStatusCompleted:
		s.reportCompleted(t)

	case model.TaskStatusFailed:
		s.output.Errorf("Task %s failed: %s", t.ID.Short(), t.Error)

	case model.TaskStatusCancelled:
		s.output.Warningf("Task %s cancelled.", t.ID.Short())
	}
}

func (s *Session) reportCompleted(t *model.Task) {
	ch, ok := s.registry.TakeResult(t.ID)
	if !ok {
		// Already claimed (e.g. by a one-shot command), nothing to show.
		s.output.Successf("Task %s completed.", t.ID.Short())
		return
	}

	res, ok := <-ch
	if !ok || res == nil {
		s.output.Successf("Task %s completed.", t.ID.Short())
		return
	}

	s.stats.Add(res.Usage, s.costs.ModelCosts(res.Model))

	s.output.Content(res.Content)
	s.output.Successf("Task %s completed in %s (%d tokens).",
		t.ID.Short(), printer.FormatDuration(t.Duration()), res.Usage.TotalTokens)
}
