package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats counts orchestration and attempt outcomes. All methods are safe for
// concurrent use; counters are lock-free.
type Stats struct {
	orchestrations    atomic.Int64
	primaryServed     atomic.Int64
	fallbackServed    atomic.Int64
	exhausted         atomic.Int64
	attemptsSucceeded sync.Map // provider -> *atomic.Int64
	attemptsFailed    sync.Map // provider -> *atomic.Int64
	startedAt         time.Time
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) recordAttempt(a Attempt) {
	m := &s.attemptsFailed
	if a.Outcome == OutcomeSuccess {
		m = &s.attemptsSucceeded
	}
	v, _ := m.LoadOrStore(a.Provider, &atomic.Int64{})
	v.(*atomic.Int64).Add(1)
}

func (s *Stats) recordOrchestration(outcome Outcome, pool Pool) {
	s.orchestrations.Add(1)
	switch {
	case outcome == OutcomeFailure:
		s.exhausted.Add(1)
	case pool == PoolPrimary:
		s.primaryServed.Add(1)
	default:
		s.fallbackServed.Add(1)
	}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Orchestrations int64            `json:"orchestrations"`
	PrimaryServed  int64            `json:"primary_served"`
	FallbackServed int64            `json:"fallback_served"`
	Exhausted      int64            `json:"exhausted"`
	Succeeded      map[string]int64 `json:"attempts_succeeded"`
	Failed         map[string]int64 `json:"attempts_failed"`
	Since          time.Time        `json:"since"`
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Orchestrations: s.orchestrations.Load(),
		PrimaryServed:  s.primaryServed.Load(),
		FallbackServed: s.fallbackServed.Load(),
		Exhausted:      s.exhausted.Load(),
		Succeeded:      map[string]int64{},
		Failed:         map[string]int64{},
		Since:          s.startedAt,
	}
	s.attemptsSucceeded.Range(func(k, v any) bool {
		snap.Succeeded[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	s.attemptsFailed.Range(func(k, v any) bool {
		snap.Failed[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return snap
}
