// Package providerfactory builds provider adapters from configuration and
// keeps the set of live providers the gateway routes between.
package providerfactory

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/anthropic"
	"mercator-hq/relay/pkg/providers/openai"
)

// NewProvider creates the adapter selected by config.Type. An empty type
// selects the OpenAI-compatible adapter.
func NewProvider(cfg providers.ProviderConfig) (providers.Provider, error) {
	if cfg.Type == "" {
		cfg.Type = config.DefaultProviderType
	}

	var (
		p   providers.Provider
		err error
	)
	switch cfg.Type {
	case "openai":
		p, err = openai.NewProvider(cfg)
	case "anthropic":
		p, err = anthropic.NewProvider(cfg)
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type %q (supported: openai, anthropic)", cfg.Type),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}

	slog.Debug("provider created", "component", "providerfactory", "name", cfg.Name, "type", cfg.Type)
	return p, nil
}

// NewProviderWithHealthCheck creates a provider and, when the configuration
// sets a health check interval, starts its background checker bound to ctx.
func NewProviderWithHealthCheck(ctx context.Context, cfg providers.ProviderConfig) (providers.Provider, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	type healthChecker interface {
		StartHealthChecker(context.Context)
	}
	if cfg.HealthCheckInterval > 0 {
		if hc, ok := p.(healthChecker); ok {
			hc.StartHealthChecker(ctx)
		}
	}
	return p, nil
}

// FromConfig converts a configured provider entry into adapter settings.
func FromConfig(name string, pc config.ProviderConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                pc.Type,
		BaseURL:             pc.BaseURL,
		APIKey:              pc.APIKey,
		Timeout:             pc.Timeout,
		MaxRetries:          pc.MaxRetries,
		HealthCheckInterval: pc.HealthCheckInterval,
	}
}
