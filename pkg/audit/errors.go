package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get for unknown record IDs.
	ErrNotFound = errors.New("audit record not found")

	// ErrInvalidQuery is returned for queries with out-of-range fields.
	ErrInvalidQuery = errors.New("invalid audit query")

	// ErrRecorderClosed is returned when recording after Close.
	ErrRecorderClosed = errors.New("audit recorder closed")

	// ErrBufferFull is returned when the recorder queue has no room.
	ErrBufferFull = errors.New("audit buffer full")
)

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("store", "query", "delete", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RecorderError represents an error while recording a record.
type RecorderError struct {
	RecordID string
	Cause    error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("recorder error [record_id=%s]: %v", e.RecordID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

// RetentionError represents an error during retention pruning.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// Normalize validates q and applies the default limit. A nil q is treated
// as an empty query.
func Normalize(q *Query) (Query, error) {
	var out Query
	if q != nil {
		out = *q
	}

	switch out.Outcome {
	case "", OutcomeSuccess, OutcomeFailure:
	default:
		return out, fmt.Errorf("%w: outcome must be %q or %q, got %q", ErrInvalidQuery, OutcomeSuccess, OutcomeFailure, out.Outcome)
	}
	if out.Limit < 0 || out.Limit > MaxQueryLimit {
		return out, fmt.Errorf("%w: limit must be between 0 and %d, got %d", ErrInvalidQuery, MaxQueryLimit, out.Limit)
	}
	if out.Offset < 0 {
		return out, fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidQuery, out.Offset)
	}
	if out.Since != nil && out.Until != nil && out.Until.Before(*out.Since) {
		return out, fmt.Errorf("%w: until is before since", ErrInvalidQuery)
	}
	if out.Limit == 0 {
		out.Limit = DefaultQueryLimit
	}
	return out, nil
}
