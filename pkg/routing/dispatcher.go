package routing

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Dispatcher bounds how many orchestrations run at once. Callers beyond the
// limit wait for a free worker for as long as their context allows.
type Dispatcher struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	gauge    func(n int64)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInFlightGauge reports the in-flight count after every change.
func WithInFlightGauge(fn func(n int64)) DispatcherOption {
	return func(d *Dispatcher) { d.gauge = fn }
}

// NewDispatcher creates a dispatcher with the given number of workers.
// Values below one are raised to one.
func NewDispatcher(workers int, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{sem: semaphore.NewWeighted(int64(workers)), size: workers}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do runs fn once a worker is free. If ctx ends while waiting, Do returns an
// error matching ErrDispatcherBusy and the context error.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatcherBusy, err)
	}
	defer d.sem.Release(1)

	d.track(1)
	defer d.track(-1)

	return fn(ctx)
}

func (d *Dispatcher) track(delta int64) {
	n := d.inFlight.Add(delta)
	if d.gauge != nil {
		d.gauge(n)
	}
}

// InFlight returns the number of running orchestrations.
func (d *Dispatcher) InFlight() int64 { return d.inFlight.Load() }

// Size returns the worker count.
func (d *Dispatcher) Size() int { return d.size }
