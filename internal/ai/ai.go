// Package ai defines the capability interface the task framework needs from
// an AI provider. The framework is provider agnostic, concrete providers live
// in the subpackages.
package ai

import (
	"context"

	"github.com/slok/aico/internal/model"
)

// Request is a single generation request.
type Request struct {
	// Prompt is the user prompt.
	Prompt string
	// System is an optional system prompt.
	System string
	// OnProgress, when set, receives the cumulative number of generated
	// tokens while the provider produces the response. Providers that can't
	// stream report it once at the end.
	OnProgress func(unitsDone int)
}

// Client is the capability interface of an AI provider.
type Client interface {
	// Generate produces a completion for the request. Implementations must
	// honor context cancellation, it is how abandoned work gets stopped.
	Generate(ctx context.Context, req Request) (*model.Response, error)
	// Models lists the model names available on the provider.
	Models(ctx context.Context) ([]string, error)
	// ModelCosts returns the pricing of a model. Local providers return zero.
	ModelCosts(modelName string) model.ModelCosts
}

// DetailedModelLister is optionally implemented by providers that can
// describe their models beyond the name.
type DetailedModelLister interface {
	ModelDetails(ctx context.Context) ([]model.ModelInfo, error)
}
