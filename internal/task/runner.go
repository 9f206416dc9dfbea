package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

const (
	// DefaultPollInterval is how often the runner checks the abort flags.
	// Frequent enough for sub-100ms perceived cancellation latency, coarse
	// enough to not burn CPU.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultWorkTimeout is the default deadline for one unit of work.
	DefaultWorkTimeout = 120 * time.Second
)

// WorkFunc performs one unit of cancellable async work. The context is
// cancelled on a best effort basis when the work is abandoned, the function
// may also return model.ErrCancelled itself when it observes the abort.
type WorkFunc func(ctx context.Context) (*model.Response, error)

// RunnerConfig is the configuration for the worker runner.
type RunnerConfig struct {
	Registry     *Registry
	PollInterval time.Duration
	WorkTimeout  time.Duration
	Logger       log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WorkTimeout == 0 {
		c.WorkTimeout = DefaultWorkTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Runner"})

	return nil
}

// Runner turns a plain unit of async work into a cancellable task execution:
// it races the work against an abort flag poller and a timeout, whichever
// settles first wins, and the registry is updated with the outcome.
//
// Cancellation is cooperative and advisory: a lost work function is not
// killed, its eventual result is discarded.
type Runner struct {
	registry     *Registry
	pollInterval time.Duration
	workTimeout  time.Duration
	logger       log.Logger
}

// NewRunner creates a new runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		registry:     cfg.Registry,
		pollInterval: cfg.PollInterval,
		workTimeout:  cfg.WorkTimeout,
		logger:       cfg.Logger,
	}, nil
}

type workResult struct {
	resp *model.Response
	err  error
}

// Run executes the work for the given task, blocking until the race settles.
// On success the response is deposited into the result channel *before* the
// task flips to completed, so anyone observing the terminal status can always
// retrieve the result immediately. The channel is closed when the run ends,
// whatever the outcome.
//
// Outcomes: work result wins -> completed or failed; abort flag wins ->
// cancelled (even if the work finished successfully in the race window);
// timeout wins -> failed.
func (r *Runner) Run(ctx context.Context, id model.TaskID, sig *Signal, result chan<- *model.Response, work WorkFunc) {
	if result != nil {
		defer close(result)
	}

	r.registry.UpdateStatus(id, model.TaskStatusRunning)

	// An abort raised before we start short-circuits the whole race.
	if sig.Requested() {
		r.registry.UpdateStatus(id, model.TaskStatusCancelled)
		return
	}

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	resC := make(chan workResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				resC <- workResult{err: fmt.Errorf("work panicked: %v", p)}
			}
		}()
		resp, err := work(workCtx)
		resC <- workResult{resp: resp, err: err}
	}()

	poll := time.NewTicker(r.pollInterval)
	defer poll.Stop()
	timeout := time.NewTimer(r.workTimeout)
	defer timeout.Stop()

	for {
		select {
		case res := <-resC:
			// Re-check once after the work settles: an abort raised in the
			// race window wins over a just finished success.
			if sig.Requested() {
				r.logger.Debugf("Task %s finished after abort was requested, result discarded", id)
				r.registry.UpdateStatus(id, model.TaskStatusCancelled)
				return
			}

			if res.err != nil {
				if errors.Is(res.err, model.ErrCancelled) {
					r.registry.UpdateStatus(id, model.TaskStatusCancelled)
					return
				}
				r.logger.Errorf("Task %s failed: %v", id, res.err)
				r.registry.Fail(id, res.err.Error())
				return
			}

			if result != nil {
				result <- res.resp
			}
			r.registry.UpdateStatus(id, model.TaskStatusCompleted)
			return

		case <-poll.C:
			if sig.Requested() {
				cancelWork() // Best effort, the late result is discarded either way.
				r.registry.UpdateStatus(id, model.TaskStatusCancelled)
				return
			}

		case <-timeout.C:
			cancelWork()
			err := fmt.Errorf("no result after %s: %w", r.workTimeout, model.ErrTimeout)
			r.logger.Errorf("Task %s timed out: %v", id, err)
			r.registry.Fail(id, err.Error())
			return
		}
	}
}
