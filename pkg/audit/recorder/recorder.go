package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/routing"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// BufferSize is the capacity of the async write queue.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Stats are cumulative recorder counters.
type Stats struct {
	Recorded uint64 `json:"recorded"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
	Pending  int    `json:"pending"`
}

// Recorder writes orchestration records asynchronously.
type Recorder struct {
	storage audit.Storage
	config  Config
	queue   chan *audit.Record
	logger  *slog.Logger

	// mu guards closed against concurrent sends on queue.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

var _ routing.Observer = (*Recorder)(nil)

// New creates a recorder and starts its worker.
func New(storage audit.Storage, cfg *Config) *Recorder {
	c := *DefaultConfig()
	if cfg != nil {
		if cfg.BufferSize > 0 {
			c.BufferSize = cfg.BufferSize
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
	}

	r := &Recorder{
		storage: storage,
		config:  c,
		queue:   make(chan *audit.Record, c.BufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"buffer_size", c.BufferSize,
		"write_timeout", c.WriteTimeout,
	)
	return r
}

// ObserveAttempt is a no-op; attempts are recorded with their
// orchestration.
func (r *Recorder) ObserveAttempt(ctx context.Context, a routing.Attempt) {}

// ObserveOrchestration enqueues a record built from rep.
func (r *Recorder) ObserveOrchestration(ctx context.Context, rep routing.Report) {
	record := FromReport(rep)
	if err := r.Record(record); err != nil {
		r.logger.Warn("audit record not queued",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
	}
}

// Record enqueues record without blocking. It returns ErrBufferFull when
// the queue has no room and ErrRecorderClosed after Close.
func (r *Recorder) Record(record *audit.Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return audit.NewRecorderError(record.ID, audit.ErrRecorderClosed)
	}

	select {
	case r.queue <- record:
		return nil
	default:
		r.dropped.Add(1)
		return audit.NewRecorderError(record.ID, audit.ErrBufferFull)
	}
}

// FromReport converts an orchestration report to an audit record with a
// fresh ID.
func FromReport(rep routing.Report) *audit.Record {
	record := &audit.Record{
		ID:        uuid.New().String(),
		RequestID: rep.RequestID,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
		Outcome:   string(rep.Outcome),
		Model:     rep.Model,
		Phase:     audit.PhaseNone,
		Attempts:  make([]audit.AttemptRecord, 0, len(rep.Attempts)),
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().Add(-rep.Duration)
	}
	if rep.Outcome == routing.OutcomeSuccess {
		record.ServedBy = rep.Provider
		record.Phase = string(rep.Pool)
	}

	for _, a := range rep.Attempts {
		record.Attempts = append(record.Attempts, audit.AttemptRecord{
			Provider: a.Provider,
			Pool:     string(a.Pool),
			Outcome:  string(a.Outcome),
			Reason:   a.Reason,
			Duration: a.Duration,
		})
	}
	return record
}

// Stats returns the current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pending:  len(r.queue),
	}
}

// Close stops accepting records and waits until the queue is drained or
// ctx is done. It is safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
		r.logger.Info("shutting down audit recorder", "pending_count", len(r.queue))
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		r.logger.Info("audit recorder shut down complete", "recorded", r.recorded.Load())
		return nil
	case <-ctx.Done():
		return audit.NewRecorderError("", ctx.Err())
	}
}

// worker drains the queue until it is closed.
func (r *Recorder) worker() {
	defer close(r.done)
	for record := range r.queue {
		r.write(record)
	}
}

func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}
	r.recorded.Add(1)

	duration := time.Since(start)
	r.logger.Debug("audit record stored",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"outcome", record.Outcome,
		"attempts", len(record.Attempts),
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
