package providers

import "context"

// Provider is an upstream text-generation backend. The gateway treats every
// provider as interchangeable: it either produces a completion or fails.
//
// Implementations must honour context cancellation in SendCompletion and
// HealthCheck and must be safe for concurrent use.
type Provider interface {
	// SendCompletion sends a single non-streaming completion request and
	// returns the normalized response.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck performs a lightweight reachability check.
	HealthCheck(ctx context.Context) error

	// GetName returns the configured provider identifier.
	GetName() string

	// GetType returns the adapter type ("openai", "anthropic").
	GetType() string

	// GetConfig returns the provider configuration.
	GetConfig() ProviderConfig

	// IsHealthy reports the current health status.
	IsHealthy() bool

	// GetHealth returns a snapshot of the health record.
	GetHealth() ProviderHealth

	// Close releases connections and stops background health checks.
	Close() error
}

// HealthObserver is notified whenever a provider's health status flips.
type HealthObserver func(provider string, healthy bool)

// HealthObservable is implemented by providers that can report health
// transitions to an observer.
type HealthObservable interface {
	SetHealthObserver(fn HealthObserver)
}
