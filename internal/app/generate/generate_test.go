package generate_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/app/generate"
	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/task"
)

type testClient struct {
	generate func(ctx context.Context, req ai.Request) (*model.Response, error)
}

func (c *testClient) Generate(ctx context.Context, req ai.Request) (*model.Response, error) {
	return c.generate(ctx, req)
}

func (c *testClient) Models(ctx context.Context) ([]string, error) { return nil, nil }

func (c *testClient) ModelCosts(string) model.ModelCosts { return model.ModelCosts{} }

type testStack struct {
	registry *task.Registry
	abort    *task.Controller
	service  *generate.Service
}

func newTestStack(t *testing.T, cli ai.Client) testStack {
	t.Helper()
	require := require.New(t)

	registry, err := task.NewRegistry(task.RegistryConfig{})
	require.NoError(err)

	runner, err := task.NewRunner(task.RunnerConfig{
		Registry:     registry,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(err)

	abort := task.NewController()

	svc, err := generate.NewService(generate.ServiceConfig{
		Registry: registry,
		Runner:   runner,
		Abort:    abort,
		Client:   cli,
	})
	require.NoError(err)

	return testStack{registry: registry, abort: abort, service: svc}
}

func waitTerminal(t *testing.T, registry *task.Registry, id model.TaskID) *model.Task {
	t.Helper()

	var got *model.Task
	require.Eventually(t, func() bool {
		tk, err := registry.Get(id)
		if err != nil {
			return false
		}
		got = tk
		return tk.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)

	return got
}

func TestServiceSubmitSuccess(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		return &model.Response{
			Content: "generated text",
			Model:   "test-model",
			Usage:   model.TokenUsage{PromptTokens: 5, CompletionTokens: 10, TotalTokens: 15},
		}, nil
	}}
	stack := newTestStack(t, cli)

	id := stack.service.Submit(context.Background(), "explain goroutines")

	got := waitTerminal(t, stack.registry, id)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.Equal("AI: explain goroutines", got.Name)
	assert.Equal(model.TaskTypeGeneration, got.Type)

	// A completed status always implies a claimable result.
	ch, ok := stack.registry.TakeResult(id)
	require.True(ok)
	res := <-ch
	require.NotNil(res)
	assert.Equal("generated text", res.Content)
}

func TestServiceSubmitTruncatesLongPrompts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		return &model.Response{}, nil
	}}
	stack := newTestStack(t, cli)

	prompt := strings.Repeat("x", 100)
	id := stack.service.Submit(context.Background(), prompt)

	got, err := stack.registry.Get(id)
	require.NoError(err)
	assert.Equal("AI: "+strings.Repeat("x", 30)+"…", got.Name)
}

func TestServiceSubmitReportsProgress(t *testing.T) {
	assert := assert.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		// Stream a few chunks spaced out enough to produce rate samples.
		for i := 1; i <= 3; i++ {
			time.Sleep(15 * time.Millisecond)
			req.OnProgress(i * 10)
		}
		return &model.Response{Content: "done"}, nil
	}}
	stack := newTestStack(t, cli)

	id := stack.service.Submit(context.Background(), "stream")

	got := waitTerminal(t, stack.registry, id)
	assert.Equal(model.TaskStatusCompleted, got.Status)
	assert.NotNil(got.Progress)
	assert.Equal(30, got.Progress.UnitsDone)
}

func TestServiceSubmitFailure(t *testing.T) {
	assert := assert.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		return nil, fmt.Errorf("model exploded")
	}}
	stack := newTestStack(t, cli)

	id := stack.service.Submit(context.Background(), "boom")

	got := waitTerminal(t, stack.registry, id)
	assert.Equal(model.TaskStatusFailed, got.Status)
	assert.Equal("model exploded", got.Error)
}

func TestServiceCancelRunningTask(t *testing.T) {
	assert := assert.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("interrupted: %w", model.ErrCancelled)
	}}
	stack := newTestStack(t, cli)

	id := stack.service.Submit(context.Background(), "never finishes")

	assert.True(stack.service.Cancel(id))

	got := waitTerminal(t, stack.registry, id)
	assert.Equal(model.TaskStatusCancelled, got.Status)
}

func TestServiceCancelUnknownTask(t *testing.T) {
	assert := assert.New(t)

	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		return &model.Response{}, nil
	}}
	stack := newTestStack(t, cli)

	assert.False(stack.service.Cancel("missing"))
}

func TestServiceAbortAllThenResubmit(t *testing.T) {
	assert := assert.New(t)

	blocked := make(chan struct{})
	cli := &testClient{generate: func(ctx context.Context, req ai.Request) (*model.Response, error) {
		select {
		case <-blocked:
			return &model.Response{Content: "ok"}, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("interrupted: %w", model.ErrCancelled)
		}
	}}
	stack := newTestStack(t, cli)

	first := stack.service.Submit(context.Background(), "first")
	stack.service.AbortAll()

	got := waitTerminal(t, stack.registry, first)
	assert.Equal(model.TaskStatusCancelled, got.Status)

	// A new submission resets the global flag and runs normally.
	close(blocked)
	second := stack.service.Submit(context.Background(), "second")

	got = waitTerminal(t, stack.registry, second)
	assert.Equal(model.TaskStatusCompleted, got.Status)
}
