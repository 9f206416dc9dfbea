package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskID uniquely identifies a tracked background task. It is also the
// correlation token between change notifications and one-shot result channels.
type TaskID string

// NewTaskID returns a new random task ID.
func NewTaskID() TaskID {
	return TaskID(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String())
}

// Short returns an abbreviated task ID for display. ULIDs start with a
// timestamp, so the distinguishing part is the random tail.
func (t TaskID) Short() string {
	if len(t) <= 8 {
		return string(t)
	}
	return string(t[len(t)-8:])
}

// TaskType represents the kind of work a task tracks. Informational only, it
// doesn't affect how a task is coordinated.
type TaskType string

const (
	TaskTypeGeneration     TaskType = "generation"
	TaskTypeShellCommand   TaskType = "shell-command"
	TaskTypeFileOperation  TaskType = "file-operation"
	TaskTypeNetworkRequest TaskType = "network-request"
	TaskTypeOther          TaskType = "other"
)

// TaskStatus represents the state of a task.
//
// Lifecycle: pending -> running -> completed | failed | cancelled
// (pending tasks can also go straight to cancelled).
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal returns true if the status can't change anymore.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// Active returns true for pending and running tasks.
func (s TaskStatus) Active() bool {
	return s == TaskStatusPending || s == TaskStatusRunning
}

// Task represents one tracked unit of cancellable background work and its
// metadata. Tasks are owned by the task registry, callers only ever see value
// copies.
type Task struct {
	ID          TaskID
	Name        string
	Type        TaskType
	Status      TaskStatus
	Error       string // Error message, set when the task failed.
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Progress    *ProgressStats
}

// NewTask creates a new pending task with a fresh random ID.
func NewTask(name string, taskType TaskType) Task {
	return Task{
		ID:        NewTaskID(),
		Name:      name,
		Type:      taskType,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkRunning transitions the task into running and stamps the start time.
func (t *Task) MarkRunning() {
	now := time.Now().UTC()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
}

// MarkCompleted transitions the task into completed and flags its progress
// (if any) as fully done.
func (t *Task) MarkCompleted() {
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	if t.Progress != nil {
		t.Progress.Complete()
	}
}

// MarkFailed transitions the task into failed preserving the error message
// for display.
func (t *Task) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.Error = errMsg
	t.CompletedAt = &now
}

// MarkCancelled transitions the task into cancelled.
func (t *Task) MarkCancelled() {
	now := time.Now().UTC()
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
}

// UpdateProgress updates the task progress stats, creating them on first use.
func (t *Task) UpdateProgress(unitsDone int) {
	if t.Progress == nil {
		t.Progress = NewProgressStats()
	}
	t.Progress.Update(unitsDone)
}

// Duration returns how long the task has been running (or ran, for finished
// tasks).
func (t Task) Duration() time.Duration {
	start := t.CreatedAt
	if t.StartedAt != nil {
		start = *t.StartedAt
	}

	end := time.Now().UTC()
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}

	return end.Sub(start)
}

// Copy returns a deep copy of the task so callers can read it without racing
// against registry mutations.
func (t Task) Copy() Task {
	newTask := t

	if t.StartedAt != nil {
		v := *t.StartedAt
		newTask.StartedAt = &v
	}

	if t.CompletedAt != nil {
		v := *t.CompletedAt
		newTask.CompletedAt = &v
	}

	if t.Progress != nil {
		p := t.Progress.Copy()
		newTask.Progress = &p
	}

	return newTask
}
