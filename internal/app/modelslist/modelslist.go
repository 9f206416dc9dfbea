// Package modelslist implements the model listing use case.
package modelslist

import (
	"context"
	"fmt"
	"sort"

	"github.com/slok/aico/internal/ai"
	"github.com/slok/aico/internal/log"
	"github.com/slok/aico/internal/model"
)

// ServiceConfig is the configuration for the models list service.
type ServiceConfig struct {
	Client ai.Client
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("AI client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.ModelsList"})

	return nil
}

// Service lists the models available on the active provider.
type Service struct {
	client ai.Client
	logger log.Logger
}

// NewService creates a new models list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// List returns the provider's models sorted by name, with details when the
// provider can describe them.
func (s *Service) List(ctx context.Context) ([]model.ModelInfo, error) {
	if lister, ok := s.client.(ai.DetailedModelLister); ok {
		infos, err := lister.ModelDetails(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list models: %w", err)
		}
		sortModels(infos)
		return infos, nil
	}

	names, err := s.client.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list models: %w", err)
	}

	infos := make([]model.ModelInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, model.ModelInfo{Name: name})
	}
	sortModels(infos)

	return infos, nil
}

func sortModels(infos []model.ModelInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
}
