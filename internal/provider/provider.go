// Package provider defines the inference capability the chat loop depends on
// and builds concrete providers from configuration.
package provider

import (
	"context"
	"fmt"

	"ollama-performance/internal/bedrock"
	"ollama-performance/internal/config"
	"ollama-performance/internal/ollama"
)

// Provider completes prompts with one model.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Factory opens a provider bound to the given model.
type Factory func(ctx context.Context, model string) (Provider, error)

// NewFactory returns a Factory for the provider kind selected in cfg.
func NewFactory(cfg *config.Config) (Factory, error) {
	switch cfg.Provider.Kind {
	case config.ProviderOllama:
		return func(ctx context.Context, model string) (Provider, error) {
			return ollama.NewClient(ollama.ClientConfig{
				Endpoint:    cfg.Provider.Endpoint,
				APIKey:      cfg.Provider.APIKey,
				Model:       model,
				MaxTokens:   cfg.Provider.MaxTokens,
				Temperature: cfg.Provider.Temperature,
				Timeout:     cfg.Provider.Timeout,
			}), nil
		}, nil
	case config.ProviderBedrock:
		return func(ctx context.Context, model string) (Provider, error) {
			client, err := bedrock.NewClient(ctx, bedrock.ClientConfig{
				Region:      cfg.Bedrock.Region,
				AccessKey:   cfg.Bedrock.AccessKeyID,
				SecretKey:   cfg.Bedrock.SecretAccessKey,
				ModelID:     model,
				MaxTokens:   cfg.Provider.MaxTokens,
				Temperature: cfg.Provider.Temperature,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

// Handshake sends prompt to p and returns an error if no reply arrives.
func Handshake(ctx context.Context, p Provider, prompt string) error {
	if _, err := p.Complete(ctx, prompt); err != nil {
		return fmt.Errorf("connection to %s (%s) failed: %w", p.Name(), p.Model(), err)
	}
	return nil
}
