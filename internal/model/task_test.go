package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/aico/internal/model"
)

func TestNewTask(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("AI: explain goroutines", model.TaskTypeGeneration)

	assert.Len(string(task.ID), 26)
	assert.Equal("AI: explain goroutines", task.Name)
	assert.Equal(model.TaskTypeGeneration, task.Type)
	assert.Equal(model.TaskStatusPending, task.Status)
	assert.False(task.CreatedAt.IsZero())
	assert.Nil(task.StartedAt)
	assert.Nil(task.CompletedAt)
}

func TestNewTaskIDsAreUnique(t *testing.T) {
	assert := assert.New(t)

	seen := map[model.TaskID]bool{}
	for i := 0; i < 1000; i++ {
		id := model.NewTaskID()
		assert.False(seen[id])
		seen[id] = true
	}
}

func TestTaskIDShort(t *testing.T) {
	tests := map[string]struct {
		id  model.TaskID
		exp string
	}{
		"full ULID keeps the random tail": {
			id:  "01JQ3V5T8KXN2M4P6R8T0VWXYZ",
			exp: "8T0VWXYZ",
		},
		"short IDs are returned whole": {
			id:  "abc",
			exp: "abc",
		},
		"empty ID": {
			id:  "",
			exp: "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.id.Short())
		})
	}
}

func TestTaskStatusTerminalAndActive(t *testing.T) {
	tests := map[string]struct {
		status      model.TaskStatus
		expTerminal bool
		expActive   bool
	}{
		"pending":   {status: model.TaskStatusPending, expTerminal: false, expActive: true},
		"running":   {status: model.TaskStatusRunning, expTerminal: false, expActive: true},
		"completed": {status: model.TaskStatusCompleted, expTerminal: true, expActive: false},
		"failed":    {status: model.TaskStatusFailed, expTerminal: true, expActive: false},
		"cancelled": {status: model.TaskStatusCancelled, expTerminal: true, expActive: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(test.expTerminal, test.status.Terminal())
			assert.Equal(test.expActive, test.status.Active())
		})
	}
}

func TestTaskTransitions(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("test", model.TaskTypeOther)

	task.MarkRunning()
	assert.Equal(model.TaskStatusRunning, task.Status)
	assert.NotNil(task.StartedAt)

	task.MarkFailed("boom")
	assert.Equal(model.TaskStatusFailed, task.Status)
	assert.Equal("boom", task.Error)
	assert.NotNil(task.CompletedAt)
}

func TestTaskMarkCompletedFinishesProgress(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("test", model.TaskTypeGeneration)
	task.MarkRunning()
	task.UpdateProgress(42)

	task.MarkCompleted()

	assert.Equal(model.TaskStatusCompleted, task.Status)
	assert.NotNil(task.CompletedAt)
	assert.NotNil(task.Progress)
	assert.NotNil(task.Progress.CompletionPercent)
	assert.Equal(100.0, *task.Progress.CompletionPercent)
}

func TestTaskUpdateProgressCreatesStats(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("test", model.TaskTypeGeneration)
	assert.Nil(task.Progress)

	task.UpdateProgress(1)
	assert.NotNil(task.Progress)
}

func TestTaskDuration(t *testing.T) {
	assert := assert.New(t)

	started := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Second)

	task := model.Task{
		CreatedAt:   started.Add(-1 * time.Second),
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	assert.Equal(5*time.Second, task.Duration())
}

func TestTaskCopyIsDeep(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("test", model.TaskTypeGeneration)
	task.MarkRunning()
	task.UpdateProgress(1)

	c := task.Copy()
	c.Progress.UnitsDone = 999
	*c.StartedAt = time.Time{}

	assert.NotEqual(999, task.Progress.UnitsDone)
	assert.False(task.StartedAt.IsZero())
}
