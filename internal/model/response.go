package model

// Response is the result of one generation request against an AI provider.
type Response struct {
	// Content is the generated text.
	Content string
	// Model is the identifier of the model that generated the response.
	Model string
	// Usage carries the token accounting reported by the provider.
	Usage TokenUsage
}

// TokenUsage holds token usage statistics for a single request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ModelCosts is the pricing information of a model.
type ModelCosts struct {
	// PromptCostPer1K is the cost per 1000 prompt tokens.
	PromptCostPer1K float64
	// CompletionCostPer1K is the cost per 1000 completion tokens.
	CompletionCostPer1K float64
}

// Cost returns the cost of the given usage with this pricing.
func (c ModelCosts) Cost(usage TokenUsage) float64 {
	promptCost := float64(usage.PromptTokens) / 1000 * c.PromptCostPer1K
	completionCost := float64(usage.CompletionTokens) / 1000 * c.CompletionCostPer1K

	return promptCost + completionCost
}

// SessionStats accumulates token usage and cost across a whole interactive
// session.
type SessionStats struct {
	PromptTokens     int
	CompletionTokens int
	TotalCost        float64
}

// Add accumulates one request's usage with the given pricing.
func (s *SessionStats) Add(usage TokenUsage, costs ModelCosts) {
	s.PromptTokens += usage.PromptTokens
	s.CompletionTokens += usage.CompletionTokens
	s.TotalCost += costs.Cost(usage)
}

// TotalTokens returns the total number of tokens used in the session.
func (s SessionStats) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}
