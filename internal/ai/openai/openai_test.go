package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/ai/openai"
	"github.com/slok/aico/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cli, err := openai.NewClient(openai.ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)

	return cli
}

func TestClientGenerate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)
		assert.Equal("/chat/completions", r.URL.Path)
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		assert.Equal("gpt-4o-mini", req["model"])

		messages := req["messages"].([]interface{})
		require.Len(messages, 2)
		assert.Equal("system", messages[0].(map[string]interface{})["role"])
		assert.Equal("user", messages[1].(map[string]interface{})["role"])

		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46}
		}`))
	})

	var progressed int
	res, err := cli.Generate(context.Background(), ai.Request{
		Prompt:     "hi",
		System:     "be nice",
		OnProgress: func(n int) { progressed = n },
	})
	require.NoError(err)

	assert.Equal("hello there", res.Content)
	assert.Equal("gpt-4o-mini", res.Model)
	assert.Equal(46, res.Usage.TotalTokens)
	assert.Equal(34, progressed)
}

func TestClientGenerateAPIError(t *testing.T) {
	assert := assert.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key"}}`))
	})

	_, err := cli.Generate(context.Background(), ai.Request{Prompt: "hi"})
	assert.True(errors.Is(err, model.ErrNotValid))
	assert.Contains(err.Error(), "bad key")
}

func TestClientGenerateNoChoices(t *testing.T) {
	assert := assert.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := cli.Generate(context.Background(), ai.Request{Prompt: "hi"})
	assert.True(errors.Is(err, model.ErrNotValid))
}

func TestClientGenerateCancelled(t *testing.T) {
	assert := assert.New(t)

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cli.Generate(ctx, ai.Request{Prompt: "hi"})
	assert.True(errors.Is(err, model.ErrCancelled))
}

func TestClientGenerateServerUnreachable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // Nothing listens anymore.

	cli, err := openai.NewClient(openai.ClientConfig{BaseURL: server.URL, Model: "gpt-4o-mini"})
	require.NoError(err)

	_, err = cli.Generate(context.Background(), ai.Request{Prompt: "hi"})
	assert.True(errors.Is(err, model.ErrUnavailable))
}

func TestClientModels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o"}, {"id": "gpt-4o-mini"}]}`))
	})

	names, err := cli.Models(context.Background())
	require.NoError(err)
	assert.Equal([]string{"gpt-4o", "gpt-4o-mini"}, names)
}

func TestClientModelCosts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli, err := openai.NewClient(openai.ClientConfig{BaseURL: "http://localhost", Model: "gpt-4o-mini"})
	require.NoError(err)

	known := cli.ModelCosts("gpt-4o-mini")
	assert.Greater(known.PromptCostPer1K, 0.0)

	unknown := cli.ModelCosts("some-local-model")
	assert.Zero(unknown.PromptCostPer1K)
	assert.Zero(unknown.CompletionCostPer1K)
}

func TestNewClientInvalidConfig(t *testing.T) {
	tests := map[string]struct {
		config openai.ClientConfig
	}{
		"missing base URL": {
			config: openai.ClientConfig{Model: "gpt-4o-mini"},
		},
		"missing model": {
			config: openai.ClientConfig{BaseURL: "http://localhost"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := openai.NewClient(test.config)
			assert.Error(t, err)
		})
	}
}
