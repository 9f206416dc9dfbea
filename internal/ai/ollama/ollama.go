// Package ollama implements the AI client against a local Ollama instance.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

// ClientConfig is the configuration for the Ollama client.
type ClientConfig struct {
	// Endpoint is the Ollama server base URL.
	Endpoint string
	// Model is the model used for generation.
	Model string
	// HTTPClient is the HTTP client used for the API calls.
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:11434"
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ai.Ollama"})

	return nil
}

// Client talks to a local Ollama server.
type Client struct {
	cli    *ollamaapi.Client
	model  string
	logger log.Logger
}

// NewClient creates a new Ollama client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}

	return &Client{
		cli:    ollamaapi.NewClient(base, cfg.HTTPClient),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// Generate streams a completion out of Ollama, reporting cumulative token
// counts through the request's progress callback while chunks arrive.
func (c *Client) Generate(ctx context.Context, req ai.Request) (*model.Response, error) {
	stream := true
	genReq := &ollamaapi.GenerateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: &stream,
	}

	var content string
	var usage model.TokenUsage
	generated := 0

	err := c.cli.Generate(ctx, genReq, func(res ollamaapi.GenerateResponse) error {
		content += res.Response
		if res.Response != "" {
			generated++
			if req.OnProgress != nil {
				req.OnProgress(generated)
			}
		}

		if res.Done {
			usage = model.TokenUsage{
				PromptTokens:     res.PromptEvalCount,
				CompletionTokens: res.EvalCount,
				TotalTokens:      res.PromptEvalCount + res.EvalCount,
			}
		}

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("generation interrupted: %w", model.ErrCancelled)
		}
		return nil, fmt.Errorf("ollama request failed (is it running?): %v: %w", err, model.ErrUnavailable)
	}

	c.logger.Debugf("Generated %d tokens with model %s", usage.CompletionTokens, c.model)

	return &model.Response{
		Content: content,
		Model:   c.model,
		Usage:   usage,
	}, nil
}

// Models lists the model names available on the local Ollama instance.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	details, err := c.ModelDetails(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.Name)
	}

	return names, nil
}

// ModelDetails lists the local models with size and family information.
func (c *Client) ModelDetails(ctx context.Context) ([]model.ModelInfo, error) {
	res, err := c.cli.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list ollama models: %v: %w", err, model.ErrUnavailable)
	}

	infos := make([]model.ModelInfo, 0, len(res.Models))
	for _, m := range res.Models {
		infos = append(infos, model.ModelInfo{
			Name:              m.Name,
			SizeBytes:         m.Size,
			ParameterSize:     m.Details.ParameterSize,
			QuantizationLevel: m.Details.QuantizationLevel,
			Family:            m.Details.Family,
		})
	}

	return infos, nil
}

// ModelCosts returns zero costs, local models are free.
func (c *Client) ModelCosts(string) model.ModelCosts {
	return model.ModelCosts{}
}
