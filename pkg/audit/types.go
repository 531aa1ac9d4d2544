package audit

import (
	"context"
	"time"
)

// Outcome and phase values stored in records.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	PhasePrimary  = "primary"
	PhaseFallback = "fallback"
	PhaseNone     = "none"
)

// Record is the audit entry of one fallback orchestration.
type Record struct {
	// ID uniquely identifies the record (UUID).
	ID string `json:"id"`

	// RequestID is the gateway request ID of the HTTP call.
	RequestID string `json:"request_id"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Outcome is "success" or "failure".
	Outcome string `json:"outcome"`

	// ServedBy is the provider that produced the reply; empty on failure.
	ServedBy string `json:"served_by,omitempty"`

	// Phase is the pool that served the request, or "none".
	Phase string `json:"phase"`

	// Model is the model identifier sent upstream.
	Model string `json:"model"`

	// Attempts lists every provider call in the order it was made.
	Attempts []AttemptRecord `json:"attempts"`
}

// AttemptRecord is one provider call within a Record.
type AttemptRecord struct {
	Provider string        `json:"provider"`
	Pool     string        `json:"pool"`
	Outcome  string        `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Query filters records. Zero fields do not filter.
type Query struct {
	// RequestID matches records of one request.
	RequestID string

	// Provider matches records with at least one attempt on the provider.
	Provider string

	// Outcome matches "success" or "failure".
	Outcome string

	// Since and Until bound StartedAt, inclusive.
	Since *time.Time
	Until *time.Time

	// Limit caps the result size. Default: 100, max: 1000.
	Limit int

	// Offset skips records for pagination.
	Offset int
}

// Query limits.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// ProviderSummary aggregates attempt outcomes of one provider.
type ProviderSummary struct {
	Provider    string    `json:"provider"`
	Successes   int64     `json:"successes"`
	Failures    int64     `json:"failures"`
	LastAttempt time.Time `json:"last_attempt"`
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record and its attempts atomically.
	Store(ctx context.Context, record *Record) error

	// Get returns the record with id, or an error matching ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns records matching q, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring Limit and
	// Offset.
	Count(ctx context.Context, q *Query) (int64, error)

	// ProviderSummary aggregates attempts started at or after since, one
	// entry per provider sorted by name. A zero since covers all records.
	ProviderSummary(ctx context.Context, since time.Time) ([]ProviderSummary, error)

	// DeleteBefore removes records started before t and returns how many
	// were removed.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
