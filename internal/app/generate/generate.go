// Package generate implements the generation dispatch use case: it turns a
// prompt into a registered task and spawns the worker that races the AI call
// against cancellation.
package generate

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/metrics"
	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/task"
)

// maxTaskNameLen is how much of the prompt ends up in the task name.
const maxTaskNameLen = 30

// ServiceConfig is the configuration for the generation dispatch service.
type ServiceConfig struct {
	Registry *task.Registry
	Runner   *task.Runner
	Abort    *task.Controller
	Client   ai.Client
	// SystemPrompt is prepended to every generation request. Optional.
	SystemPrompt string
	Metrics      metrics.Recorder
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Abort == nil {
		return fmt.Errorf("abort controller is required")
	}
	if c.Client == nil {
		return fmt.Errorf("AI client is required")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Generate"})

	return nil
}

// Service dispatches generation requests as cancellable background tasks.
type Service struct {
	registry *task.Registry
	runner   *task.Runner
	abort    *task.Controller
	client   ai.Client
	system   string
	metrics  metrics.Recorder
	logger   log.Logger

	mu      sync.Mutex
	signals map[model.TaskID]*task.Signal
}

// NewService creates a new generation dispatch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		runner:   cfg.Runner,
		abort:    cfg.Abort,
		client:   cfg.Client,
		system:   cfg.SystemPrompt,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		signals:  map[model.TaskID]*task.Signal{},
	}, nil
}

// Submit registers a new generation task for the prompt and spawns its
// worker. It returns immediately with the task ID, the outcome is observed
// through the registry: subscribe for the change notification and claim the
// one-shot result channel once the task completes.
//
// The process wide abort flag is cleared first so a previous abort doesn't
// cancel the new work.
func (s *Service) Submit(ctx context.Context, prompt string) model.TaskID {
	s.abort.Reset()

	id := s.registry.Create(taskName(prompt), model.TaskTypeGeneration)
	s.metrics.TaskCreated(model.TaskTypeGeneration)

	sig := s.abort.NewSignal()
	s.mu.Lock()
	s.signals[id] = sig
	s.mu.Unlock()

	// Attached before the worker starts so a completed status always implies
	// a retrievable result.
	result := make(chan *model.Response, 1)
	s.registry.AttachResult(id, result)

	work := func(ctx context.Context) (*model.Response, error) {
		return s.client.Generate(ctx, ai.Request{
			Prompt: prompt,
			System: s.system,
			OnProgress: func(unitsDone int) {
				s.registry.UpdateProgress(id, unitsDone)
			},
		})
	}

	go func() {
		start := time.Now()
		s.runner.Run(ctx, id, sig, result, work)

		s.mu.Lock()
		delete(s.signals, id)
		s.mu.Unlock()

		if t, err := s.registry.Get(id); err == nil {
			s.metrics.TaskFinished(t.Status, time.Since(start))
		}
	}()

	s.logger.Debugf("Submitted generation task %s", id)

	return id
}

// Cancel requests cancellation of a task. Running tasks get their abort flag
// raised and finish as cancelled when their worker observes it; tasks without
// a live worker are cancelled directly on the registry. Returns false for
// unknown tasks.
func (s *Service) Cancel(id model.TaskID) bool {
	s.mu.Lock()
	sig, ok := s.signals[id]
	s.mu.Unlock()

	if ok {
		sig.Request()
		return true
	}

	return s.registry.Cancel(id)
}

// AbortAll raises the process wide abort flag, cancelling every in-flight
// task on its next poll.
func (s *Service) AbortAll() {
	s.abort.AbortAll()
}

// taskName builds a short human readable name out of the prompt.
func taskName(prompt string) string {
	name := prompt
	if utf8.RuneCountInString(name) > maxTaskNameLen {
		runes := []rune(name)
		name = string(runes[:maxTaskNameLen]) + "…"
	}

	return "AI: " + name
}
