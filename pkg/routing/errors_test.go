package routing

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestAllProvidersFailedError(t *testing.T) {
	err := &AllProvidersFailedError{Attempts: []Attempt{
		{Provider: "a", Pool: PoolPrimary, Outcome: OutcomeFailure, Reason: "timeout"},
		{Provider: "c", Pool: PoolFallback, Outcome: OutcomeFailure, Reason: "HTTP 500"},
	}}

	if got, want := err.Error(), "all providers failed: a: timeout; c: HTTP 500"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Error("errors.Is(err, ErrAllProvidersFailed) = false")
	}
	if errors.Is(err, ErrEmptyResponse) {
		t.Error("errors.Is(err, ErrEmptyResponse) = true")
	}

	wrapped := fmt.Errorf("chat: %w", err)
	var target *AllProvidersFailedError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As through wrapping failed")
	}
	if !slices.Equal(target.Providers(), []string{"a", "c"}) {
		t.Errorf("Providers() = %v", target.Providers())
	}
}
