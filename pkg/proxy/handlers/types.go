package handlers

import (
	"context"
	"time"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing"
)

// Completer runs a conversation through the provider pools.
// *routing.Orchestrator implements it.
type Completer interface {
	CompleteWithFallback(ctx context.Context, messages []providers.Message, gen routing.GenerationConfig) (*routing.Result, error)
}

// Admitter bounds how many completions run at once.
// *routing.Dispatcher implements it.
type Admitter interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// HealthReporter reports provider health.
// *providerfactory.Manager implements it.
type HealthReporter interface {
	GetHealthSummary() providerfactory.HealthSummary
}

// AttemptReader reads recorded orchestrations. Every audit.Storage
// implements it.
type AttemptReader interface {
	Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error)
	Count(ctx context.Context, q *audit.Query) (int64, error)
	ProviderSummary(ctx context.Context, since time.Time) ([]audit.ProviderSummary, error)
}
