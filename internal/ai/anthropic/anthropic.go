// Package anthropic implements the AI client against the Anthropic messages
// API.
package anthropic

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

const apiVersion = "2023-06-01"

// ClientConfig is the configuration for the Anthropic client.
type ClientConfig struct {
	// BaseURL is the API base, defaults to the public endpoint.
	BaseURL string
	APIKey  string
	// Model is the model used for generation.
	Model string
	// MaxTokens caps the completion length, required by the messages API.
	MaxTokens  int
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.anthropic.com"
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ai.Anthropic"})

	return nil
}

// Client talks to the Anthropic messages API.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	httpCli   *http.Client
	logger    log.Logger
}

// NewClient creates a new Anthropic client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpCli:   cfg.HTTPClient,
		logger:    cfg.Logger,
	}, nil
}

type messagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	System    string            `json:"system,omitempty"`
	Messages  []messagesMessage `json:"messages"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces a completion through the messages API. Not streamed, the
// progress callback is invoked once with the final output token count.
func (c *Client) Generate(ctx context.Context, req ai.Request) (*model.Response, error) {
	var res messagesResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/messages", messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  []messagesMessage{{Role: "user", Content: req.Prompt}},
	}, &res)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := model.TokenUsage{
		PromptTokens:     res.Usage.InputTokens,
		CompletionTokens: res.Usage.OutputTokens,
		TotalTokens:      res.Usage.InputTokens + res.Usage.OutputTokens,
	}
	if req.OnProgress != nil && usage.CompletionTokens > 0 {
		req.OnProgress(usage.CompletionTokens)
	}

	return &model.Response{
		Content: content.String(),
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
	if err := c.doJSON(ctx, http.MethodGet, "/v1/models", nil, &res); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(res.Data))
	for _, m := range res.Data {
		names = append(names, m.ID)
	}

	return names, nil
}

// anthropicCosts is the per 1k token pricing of the commonly used models.
var anthropicCosts = map[string]model.ModelCosts{
	"claude-3-5-sonnet-latest": {PromptCostPer1K: 0.003, CompletionCostPer1K: 0.015},
	"claude-3-5-haiku-latest":  {PromptCostPer1K: 0.0008, CompletionCostPer1K: 0.004},
	"claude-3-opus-latest":     {PromptCostPer1K: 0.015, CompletionCostPer1K: 0.075},
}

// ModelCosts returns the known pricing of a model, zero when unknown.
func (c *Client) ModelCosts(modelName string) model.ModelCosts {
	return anthropicCosts[modelName]
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
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

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
		var apiRes messagesResponse
		msg := string(data)
		if err := json.Unmarshal(data, &apiRes); err == nil && apiRes.Error != nil {
			msg = apiRes.Error.Message
		}
		return fmt.Errorf("api returned status %d: %s: %w", res.StatusCode, msg, model.ErrNotValid)
	}

	if err := json.Unmarshal(data, resBody); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}

	return nil
}
