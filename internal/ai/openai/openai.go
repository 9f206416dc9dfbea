// Package openai implements the AI client against any OpenAI compatible API
// (OpenAI itself, LM Studio, and friends).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

// ClientConfig is the configuration for the OpenAI compatible client.
type ClientConfig struct {
	// BaseURL is the API base (e.g. "https://api.openai.com/v1").
	BaseURL string
	// APIKey is the bearer token. Optional, local OpenAI compatible servers
	// don't need one.
	APIKey string
	// Model is the model used for generation.
	Model      string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ai.OpenAI"})

	return nil
}

// Client talks to an OpenAI compatible chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	httpCli *http.Client
	logger  log.Logger
}

// NewClient creates a new OpenAI compatible client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpCli: cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces a completion through the chat completions endpoint. The
// API is not streamed, the progress callback is invoked once with the final
// completion token count.
func (c *Client) Generate(ctx context.Context, req ai.Request) (*model.Response, error) {
	messages := []chatMessage{}
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var res chatResponse
	err := c.doJSON(ctx, http.MethodPost, "/chat/completions", chatRequest{
		Model:    c.model,
		Messages: messages,
	}, &res)
	if err != nil {
		return nil, err
	}

	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("response without choices: %w", model.ErrNotValid)
	}

	usage := model.TokenUsage{
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
	}
	if req.OnProgress != nil && usage.CompletionTokens > 0 {
		req.OnProgress(usage.CompletionTokens)
	}

	return &model.Response{
		Content: res.Choices[0].Message.Content,
		Model:   c.model,
		Usage:   usage,
	}, nil
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Models lists the model names available on the API.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var res modelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &res); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(res.Data))
	for _, m := range res.Data {
		names = append(names, m.ID)
	}

	return names, nil
}

// openAICosts is the per 1k token pricing of the commonly used models.
var openAICosts = map[string]model.ModelCosts{
	"gpt-4o":        {PromptCostPer1K: 0.0025, CompletionCostPer1K: 0.01},
	"gpt-4o-mini":   {PromptCostPer1K: 0.00015, CompletionCostPer1K: 0.0006},
	"gpt-4-turbo":   {PromptCostPer1K: 0.01, CompletionCostPer1K: 0.03},
	"gpt-3.5-turbo": {PromptCostPer1K: 0.0005, CompletionCostPer1K: 0.0015},
}

// ModelCosts returns the known pricing of a model, zero when unknown (e.g.
// local OpenAI compatible servers).
func (c *Client) ModelCosts(modelName string) model.ModelCosts {
	return openAICosts[modelName]
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, resBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpCli.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request interrupted: %w", model.ErrCancelled)
		}
		return fmt.Errorf("request failed: %v: %w", err, model.ErrUnavailable)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d: %s: %w", res.StatusCode, apiErrorMessage(data), model.ErrNotValid)
	}

	if err := json.Unmarshal(data, resBody); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}

	return nil
}

// apiErrorMessage extracts the error message of an API error payload, falling
// back to a truncated raw body.
func apiErrorMessage(data []byte) string {
	var res chatResponse
	if err := json.Unmarshal(data, &res); err == nil && res.Error != nil {
		return res.Error.Message
	}

	const maxLen = 200
	s := string(data)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
