package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

const (
	// DefaultRecentWindow is how far back RecentTasks looks by default.
	DefaultRecentWindow = 10 * time.Minute
	// DefaultRetention is how long finished tasks are kept before Cleanup
	// evicts them.
	DefaultRetention = 30 * time.Minute
)

// RegistryConfig is the configuration for the task registry.
type RegistryConfig struct {
	Logger log.Logger
}

func (c *RegistryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Registry"})

	return nil
}

// Registry is the single source of truth for task existence and state. It is
// safe for concurrent use: workers mutate tasks through it while the UI loop
// reads snapshots.
//
// Status and progress changes fan out to subscribers as task IDs. The
// notification only means "something changed, re-read the task", it never
// carries the state itself: a lagging subscriber can drop notifications and
// still recover through Get.
type Registry struct {
	mu    sync.Mutex
	tasks map[model.TaskID]*model.Task

	subsMu sync.Mutex
	subs   map[<-chan model.TaskID]chan model.TaskID

	resultsMu sync.Mutex
	results   map[model.TaskID]chan *model.Response

	logger log.Logger
}

// NewRegistry creates a new empty task registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Registry{
		tasks:   map[model.TaskID]*model.Task{},
		subs:    map[<-chan model.TaskID]chan model.TaskID{},
		results: map[model.TaskID]chan *model.Response{},
		logger:  cfg.Logger,
	}, nil
}

// Create registers a new pending task and returns its ID.
func (r *Registry) Create(name string, taskType model.TaskType) model.TaskID {
	newTask := model.NewTask(name, taskType)

	r.mu.Lock()
	r.tasks[newTask.ID] = &newTask
	r.mu.Unlock()

	r.logger.Debugf("Created task %s (%s)", newTask.ID, taskType)
	r.notify(newTask.ID)

	return newTask.ID
}

// Get returns a point-in-time copy of the task.
func (r *Registry) Get(id model.TaskID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	taskCopy := t.Copy()
	return &taskCopy, nil
}

// UpdateStatus applies a status transition. Transitions are monotonic: once a
// task is in a terminal state further updates are silent no-ops. Running is
// only entered once, so the start timestamp is stamped exactly once. Returns
// false when the task is unknown.
func (r *Registry) UpdateStatus(id model.TaskID, status model.TaskStatus) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	if !t.Status.Terminal() {
		switch status {
		case model.TaskStatusRunning:
			if t.Status == model.TaskStatusPending {
				t.MarkRunning()
			}
		case model.TaskStatusCompleted:
			t.MarkCompleted()
		case model.TaskStatusFailed:
			t.MarkFailed(t.Error)
		case model.TaskStatusCancelled:
			t.MarkCancelled()
		case model.TaskStatusPending:
			// Tasks are born pending, nothing to do.
		}
	}
	r.mu.Unlock()

	r.notify(id)

	return true
}

// Fail transitions the task into failed preserving the error message for
// display. Returns false when the task is unknown.
func (r *Registry) Fail(id model.TaskID, errMsg string) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	if !t.Status.Terminal() {
		t.MarkFailed(errMsg)
	}
	r.mu.Unlock()

	r.notify(id)

	return true
}

// Cancel requests the task to be marked as cancelled. This is the entry point
// for user initiated cancellations, workers use UpdateStatus when they observe
// an abort themselves.
func (r *Registry) Cancel(id model.TaskID) bool {
	return r.UpdateStatus(id, model.TaskStatusCancelled)
}

// UpdateProgress registers a new generated unit count for the task, creating
// its progress stats on first use. Returns false when the task is unknown.
func (r *Registry) UpdateProgress(id model.TaskID, unitsDone int) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	t.UpdateProgress(unitsDone)
	r.mu.Unlock()

	r.notify(id)

	return true
}

// SetProgressTotal sets the estimated total units for the task's progress,
// creating the progress stats when missing. Returns false when the task is
// unknown.
func (r *Registry) SetProgressTotal(id model.TaskID, total int) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if t.Progress == nil {
		t.Progress = model.NewProgressStats()
	}
	t.Progress.EstimatedTotal = total
	r.mu.Unlock()

	r.notify(id)

	return true
}

// ActiveTasks returns a snapshot of all pending and running tasks.
func (r *Registry) ActiveTasks() []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []model.Task
	for _, t := range r.tasks {
		if t.Status.Active() {
			active = append(active, t.Copy())
		}
	}

	return active
}

// RecentTasks returns a snapshot of the terminal tasks that finished within
// the given window.
func (r *Registry) RecentTasks(window time.Duration) []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var recent []model.Task
	for _, t := range r.tasks {
		if t.CompletedAt == nil {
			continue
		}
		if now.Sub(*t.CompletedAt) < window {
			recent = append(recent, t.Copy())
		}
	}

	return recent
}

// Cleanup evicts terminal tasks that finished longer than retention ago,
// along with their unclaimed result channels. Active tasks are never evicted
// regardless of age. Returns the number of evicted tasks.
//
// Meant to run on a fixed period from the orchestrator instead of on every
// update, to bound lock contention.
func (r *Registry) Cleanup(retention time.Duration) int {
	now := time.Now().UTC()

	r.mu.Lock()
	var evicted []model.TaskID
	for id, t := range r.tasks {
		if t.CompletedAt == nil {
			continue
		}
		if now.Sub(*t.CompletedAt) >= retention {
			evicted = append(evicted, id)
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}

	r.resultsMu.Lock()
	for _, id := range evicted {
		delete(r.results, id)
	}
	r.resultsMu.Unlock()

	r.logger.Debugf("Evicted %d finished tasks", len(evicted))

	return len(evicted)
}

// Subscribe registers a new notification subscriber and returns its channel.
// Every status or progress change emits the affected task ID. Sends never
// block: when the subscriber's buffer is full the notification is dropped,
// the registry itself remains the authoritative state.
func (r *Registry) Subscribe(buffer int) <-chan model.TaskID {
	ch := make(chan model.TaskID, buffer)

	r.subsMu.Lock()
	r.subs[ch] = ch
	r.subsMu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Registry) Unsubscribe(ch <-chan model.TaskID) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	sub, ok := r.subs[ch]
	if !ok {
		return
	}
	delete(r.subs, ch)
	close(sub)
}

// AttachResult stores the one-shot result channel for a task. The worker
// deposits the final response there and the consumer claims it through
// TakeResult.
func (r *Registry) AttachResult(id model.TaskID, ch chan *model.Response) {
	r.resultsMu.Lock()
	defer r.resultsMu.Unlock()

	r.results[id] = ch
}

// TakeResult claims the result channel of a task. It can be claimed once:
// taking removes the entry, a second caller gets nothing.
func (r *Registry) TakeResult(id model.TaskID) (chan *model.Response, bool) {
	r.resultsMu.Lock()
	defer r.resultsMu.Unlock()

	ch, ok := r.results[id]
	if !ok {
		return nil, false
	}
	delete(r.results, id)

	return ch, true
}

// notify fans out a change notification. Called without holding the task
// lock so a slow subscriber can never stall a registry mutation.
func (r *Registry) notify(id model.TaskID) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for _, sub := range r.subs {
		select {
		case sub <- id:
		default: // Lagging subscriber, it will re-read state on the next one.
		}
	}
}
