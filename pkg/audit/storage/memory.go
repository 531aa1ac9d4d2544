package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"mercator-hq/relay/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
// Records are lost on restart; use it for tests and single-process runs.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

var _ audit.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := validateRecord(record); err != nil {
		return audit.NewStorageError(BackendMemory, "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return audit.NewStorageError(BackendMemory, "store", fmt.Errorf("duplicate record id %s", record.ID))
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Get returns a copy of the record with id.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", audit.ErrNotFound, id)
	}
	return cloneRecord(r), nil
}

// Query retrieves records matching q, newest first.
func (s *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	query, err := audit.Normalize(q)
	if err != nil {
		return nil, err
	}

	matched := s.filter(query)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if query.Offset >= len(matched) {
		return []*audit.Record{}, nil
	}
	end := min(query.Offset+query.Limit, len(matched))

	out := make([]*audit.Record, 0, end-query.Offset)
	for _, r := range matched[query.Offset:end] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

// Count returns the number of records matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	query, err := audit.Normalize(q)
	if err != nil {
		return 0, err
	}
	return int64(len(s.filter(query))), nil
}

// ProviderSummary aggregates attempt outcomes per provider.
func (s *MemoryStorage) ProviderSummary(ctx context.Context, since time.Time) ([]audit.ProviderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProvider := make(map[string]*audit.ProviderSummary)
	for _, r := range s.records {
		if !since.IsZero() && r.StartedAt.Before(since) {
			continue
		}
		for _, a := range r.Attempts {
			ps, ok := byProvider[a.Provider]
			if !ok {
				ps = &audit.ProviderSummary{Provider: a.Provider}
				byProvider[a.Provider] = ps
			}
			switch a.Outcome {
			case audit.OutcomeSuccess:
				ps.Successes++
			case audit.OutcomeFailure:
				ps.Failures++
			}
			if r.StartedAt.After(ps.LastAttempt) {
				ps.LastAttempt = r.StartedAt.UTC()
			}
		}
	}

	out := make([]audit.ProviderSummary, 0, len(byProvider))
	for _, ps := range byProvider {
		out = append(out, *ps)
	}
	slices.SortFunc(out, func(a, b audit.ProviderSummary) int {
		return strings.Compare(a.Provider, b.Provider)
	})
	return out, nil
}

// DeleteBefore removes records started before t.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, r := range s.records {
		if r.StartedAt.Before(t) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*audit.Record)
	return nil
}

// filter returns the stored records matching q. Callers must not mutate
// the returned records.
func (s *MemoryStorage) filter(q audit.Query) []*audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.Record
	for _, r := range s.records {
		if matchesQuery(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matchesQuery(r *audit.Record, q audit.Query) bool {
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.Since != nil && r.StartedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.StartedAt.After(*q.Until) {
		return false
	}
	if q.Provider != "" {
		return slices.ContainsFunc(r.Attempts, func(a audit.AttemptRecord) bool {
			return a.Provider == q.Provider
		})
	}
	return true
}

func cloneRecord(r *audit.Record) *audit.Record {
	c := *r
	c.Attempts = slices.Clone(r.Attempts)
	if c.Attempts == nil {
		c.Attempts = []audit.AttemptRecord{}
	}
	return &c
}
