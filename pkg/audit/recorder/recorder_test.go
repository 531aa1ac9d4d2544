package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/audit/storage"
	"mercator-hq/relay/pkg/routing"
)

func successReport() routing.Report {
	return routing.Report{
		RequestID: "req-1",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  300 * time.Millisecond,
		Outcome:   routing.OutcomeSuccess,
		Provider:  "c",
		Pool:      routing.PoolFallback,
		Model:     "gpt-4o-mini",
		Attempts: []routing.Attempt{
			{Provider: "a", Pool: routing.PoolPrimary, Outcome: routing.OutcomeFailure, Reason: "timeout", Duration: 100 * time.Millisecond, Err: errors.New("timeout")},
			{Provider: "c", Pool: routing.PoolFallback, Outcome: routing.OutcomeSuccess, Duration: 200 * time.Millisecond},
		},
	}
}

func TestFromReport(t *testing.T) {
	rec := FromReport(successReport())

	if rec.ID == "" {
		t.Error("ID is empty")
	}
	if rec.RequestID != "req-1" || rec.Outcome != audit.OutcomeSuccess || rec.ServedBy != "c" || rec.Phase != audit.PhaseFallback {
		t.Errorf("FromReport() = %+v", rec)
	}
	if len(rec.Attempts) != 2 || rec.Attempts[0].Reason != "timeout" || rec.Attempts[1].Pool != "fallback" {
		t.Errorf("Attempts = %+v", rec.Attempts)
	}

	other := FromReport(successReport())
	if other.ID == rec.ID {
		t.Error("FromReport() reused an ID")
	}
}

func TestFromReport_Failure(t *testing.T) {
	rep := routing.Report{
		RequestID: "req-2",
		Duration:  time.Second,
		Outcome:   routing.OutcomeFailure,
		Provider:  "ignored",
		Pool:      routing.PoolFallback,
		Attempts: []routing.Attempt{
			{Provider: "a", Pool: routing.PoolPrimary, Outcome: routing.OutcomeFailure, Reason: "HTTP 500"},
		},
	}
	rec := FromReport(rep)

	if rec.ServedBy != "" || rec.Phase != audit.PhaseNone || rec.Outcome != audit.OutcomeFailure {
		t.Errorf("FromReport(failure) = %+v", rec)
	}
	if rec.StartedAt.IsZero() {
		t.Error("StartedAt not derived for a report without a start time")
	}
}

func TestRecorder_ObserveOrchestration(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := New(store, &Config{BufferSize: 10})

	for i := 0; i < 5; i++ {
		r.ObserveOrchestration(context.Background(), successReport())
	}
	r.ObserveAttempt(context.Background(), routing.Attempt{Provider: "a"})

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	count, err := store.Count(context.Background(), &audit.Query{RequestID: "req-1"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("stored %d records, want 5", count)
	}
	if s := r.Stats(); s.Recorded != 5 || s.Dropped != 0 || s.Failed != 0 || s.Pending != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

// blockingStorage holds every Store call until release is closed.
type blockingStorage struct {
	audit.Storage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Store(ctx context.Context, rec *audit.Record) error {
	b.entered <- struct{}{}
	<-b.release
	return b.Storage.Store(ctx, rec)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStorage{
		Storage: storage.NewMemoryStorage(),
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	r := New(store, &Config{BufferSize: 1})

	if err := r.Record(FromReport(successReport())); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}
	<-store.entered

	if err := r.Record(FromReport(successReport())); err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	err := r.Record(FromReport(successReport()))
	if !errors.Is(err, audit.ErrBufferFull) {
		t.Fatalf("third Record() error = %v, want ErrBufferFull", err)
	}
	var recErr *audit.RecorderError
	if !errors.As(err, &recErr) || recErr.RecordID == "" {
		t.Errorf("error = %#v, want *RecorderError with record id", err)
	}

	close(store.release)
	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s := r.Stats(); s.Recorded != 2 || s.Dropped != 1 {
		t.Errorf("Stats() = %+v, want 2 recorded and 1 dropped", s)
	}
}

type failingStorage struct {
	audit.Storage
}

func (failingStorage) Store(context.Context, *audit.Record) error {
	return audit.NewStorageError("sqlite", "store", errors.New("disk I/O error"))
}

func TestRecorder_CountsFailures(t *testing.T) {
	r := New(failingStorage{Storage: storage.NewMemoryStorage()}, nil)
	r.ObserveOrchestration(context.Background(), successReport())
	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s := r.Stats(); s.Failed != 1 || s.Recorded != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	r := New(storage.NewMemoryStorage(), nil)
	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err := r.Record(FromReport(successReport()))
	if !errors.Is(err, audit.ErrRecorderClosed) {
		t.Errorf("Record() after Close error = %v, want ErrRecorderClosed", err)
	}
	// Observing after close logs and returns.
	r.ObserveOrchestration(context.Background(), successReport())
}

func TestRecorder_CloseHonorsContext(t *testing.T) {
	store := &blockingStorage{
		Storage: storage.NewMemoryStorage(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := New(store, nil)
	if err := r.Record(FromReport(successReport())); err != nil {
		t.Fatal(err)
	}
	<-store.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() error = %v, want DeadlineExceeded", err)
	}

	close(store.release)
	if err := r.Close(context.Background()); err != nil {
		t.Errorf("Close() after release error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BufferSize != 1000 || cfg.WriteTimeout != 5*time.Second {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
