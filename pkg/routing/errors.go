package routing

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyPrimaryPool is returned by NewRotator when no primary
	// providers are configured.
	ErrEmptyPrimaryPool = errors.New("primary provider pool is empty")

	// ErrEmptyProviderID is returned by NewRotator for blank identifiers.
	ErrEmptyProviderID = errors.New("provider identifier is empty")

	// ErrAllProvidersFailed matches AllProvidersFailedError via errors.Is.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrEmptyResponse marks a completion whose content is blank.
	ErrEmptyResponse = errors.New("empty response")

	// ErrDispatcherBusy is returned when a request gives up waiting for a
	// free worker.
	ErrDispatcherBusy = errors.New("no worker available")
)

// AllProvidersFailedError is returned when every primary and fallback
// attempt failed. Attempts lists one entry per attempted provider in the
// order the attempts were made.
type AllProvidersFailedError struct {
	Attempts []Attempt
}

// Error renders "all providers failed: A: reason; B: reason".
func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Provider+": "+a.Reason)
	}
	return ErrAllProvidersFailed.Error() + ": " + strings.Join(parts, "; ")
}

// Is implements error matching for errors.Is().
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Providers returns the attempted provider identifiers in order.
func (e *AllProvidersFailedError) Providers() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Provider
	}
	return out
}
