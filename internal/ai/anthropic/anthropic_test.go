package anthropic_test

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
	"github.com/slok/aico/internal/ai/anthropic"
	"github.com/slok/aico/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *anthropic.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cli, err := anthropic.NewClient(anthropic.ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "claude-3-5-sonnet-latest",
	})
	require.NoError(t, err)

	return cli
}

func TestClientGenerate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)
		assert.Equal("/v1/messages", r.URL.Path)
		assert.Equal("test-key", r.Header.Get("x-api-key"))
		assert.Equal("2023-06-01", r.Header.Get("anthropic-version"))

		var req map[string]interface{}
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		assert.Equal("claude-3-5-sonnet-latest", req["model"])
		assert.Equal("be nice", req["system"])
		assert.NotZero(req["max_tokens"])

		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "hello "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "there"}
			],
			"usage": {"input_tokens": 12, "output_tokens": 34}
		}`))
	})

	var progressed int
	res, err := cli.Generate(context.Background(), ai.Request{
		Prompt:     "hi",
		System:     "be nice",
		OnProgress: func(n int) { progressed = n },
	})
	require.NoError(err)

	// Only text blocks end up in the content.
	assert.Equal("hello there", res.Content)
	assert.Equal(12, res.Usage.PromptTokens)
	assert.Equal(34, res.Usage.CompletionTokens)
	assert.Equal(46, res.Usage.TotalTokens)
	assert.Equal(34, progressed)
}

func TestClientGenerateAPIError(t *testing.T) {
	assert := assert.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "max_tokens required"}}`))
	})

	_, err := cli.Generate(context.Background(), ai.Request{Prompt: "hi"})
	assert.True(errors.Is(err, model.ErrNotValid))
	assert.Contains(err.Error(), "max_tokens required")
}

func TestClientModels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": [{"id": "claude-3-5-sonnet-latest"}, {"id": "claude-3-5-haiku-latest"}]}`))
	})

	names, err := cli.Models(context.Background())
	require.NoError(err)
	assert.Equal([]string{"claude-3-5-sonnet-latest", "claude-3-5-haiku-latest"}, names)
}

func TestClientModelCosts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli, err := anthropic.NewClient(anthropic.ClientConfig{APIKey: "k", Model: "claude-3-5-sonnet-latest"})
	require.NoError(err)

	known := cli.ModelCosts("claude-3-5-sonnet-latest")
	assert.Greater(known.PromptCostPer1K, 0.0)

	assert.Zero(cli.ModelCosts("unknown-model").PromptCostPer1K)
}

func TestNewClientInvalidConfig(t *testing.T) {
	tests := map[string]struct {
		config anthropic.ClientConfig
	}{
		"missing API key": {
			config: anthropic.ClientConfig{Model: "claude-3-5-sonnet-latest"},
		},
		"missing model": {
			config: anthropic.ClientConfig{APIKey: "k"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := anthropic.NewClient(test.config)
			assert.Error(t, err)
		})
	}
}
