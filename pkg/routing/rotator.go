package routing

import (
	"fmt"
	"slices"
	"sync"
)

// pool is an ordered list of provider identifiers with a round-robin cursor.
// The cursor read-modify-write is serialized by mu; each pool has its own
// lock so primary and fallback draws never contend.
type pool struct {
	mu      sync.Mutex
	members []string
	cursor  int
}

func (p *pool) next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.members) == 0 {
		return "", false
	}
	id := p.members[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.members)
	return id, true
}

// round returns the members in rotation order starting at the cursor and
// advances the cursor by one, all under a single lock.
func (p *pool) round() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.members)
	if n == 0 {
		return nil
	}
	order := make([]string, 0, n)
	order = append(order, p.members[p.cursor:]...)
	order = append(order, p.members[:p.cursor]...)
	p.cursor = (p.cursor + 1) % n
	return order
}

func (p *pool) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.members) > 0 {
		p.cursor = (p.cursor + 1) % len(p.members)
	}
}

func (p *pool) peek() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.members) == 0 {
		return "", false
	}
	return p.members[p.cursor], true
}

func (p *pool) position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Rotator hands out provider identifiers from a primary pool in round-robin
// order and exposes a fallback pool that is consumed in fixed order.
//
// Pool membership is fixed at construction. Cursors persist across calls
// for the lifetime of the Rotator.
type Rotator struct {
	primary  pool
	fallback pool
}

// RotatorOption configures a Rotator.
type RotatorOption func(*Rotator)

// WithPrimaryCursor sets the starting position of the primary cursor,
// taken modulo the pool size.
func WithPrimaryCursor(i int) RotatorOption {
	return func(r *Rotator) { r.primary.cursor = wrap(i, len(r.primary.members)) }
}

// WithFallbackCursor sets the starting position of the fallback cursor,
// taken modulo the pool size.
func WithFallbackCursor(i int) RotatorOption {
	return func(r *Rotator) { r.fallback.cursor = wrap(i, len(r.fallback.members)) }
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// NewRotator builds a Rotator over copies of primary and fallback. The
// primary pool must be non-empty; the fallback pool may be empty. Empty
// identifiers are rejected in either pool.
func NewRotator(primary, fallback []string, opts ...RotatorOption) (*Rotator, error) {
	if len(primary) == 0 {
		return nil, ErrEmptyPrimaryPool
	}
	for _, pl := range []struct {
		name    string
		members []string
	}{{"primary", primary}, {"fallback", fallback}} {
		for i, id := range pl.members {
			if id == "" {
				return nil, fmt.Errorf("%w: %s[%d]", ErrEmptyProviderID, pl.name, i)
			}
		}
	}

	r := &Rotator{
		primary:  pool{members: slices.Clone(primary)},
		fallback: pool{members: slices.Clone(fallback)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NextPrimary returns the provider at the primary cursor and advances the
// cursor by one.
func (r *Rotator) NextPrimary() string {
	id, _ := r.primary.next()
	return id
}

// PrimaryRound is one pass over the primary pool. Its order is fixed when
// the round is taken, so concurrent draws by other callers never make it
// repeat or skip a member. Each Next still advances the shared cursor.
type PrimaryRound struct {
	pool  *pool
	order []string
	next  int
}

// NextPrimaryRound takes a round starting at the primary cursor. Taking the
// round counts as the first draw.
func (r *Rotator) NextPrimaryRound() *PrimaryRound {
	return &PrimaryRound{pool: &r.primary, order: r.primary.round()}
}

// Next returns the next member of the round. The boolean is false once
// every member has been returned.
func (pr *PrimaryRound) Next() (string, bool) {
	if pr.next >= len(pr.order) {
		return "", false
	}
	if pr.next > 0 {
		pr.pool.advance()
	}
	id := pr.order[pr.next]
	pr.next++
	return id, true
}

// NextFallback returns the provider at the fallback cursor and advances it.
// The boolean is false when the fallback pool is empty.
func (r *Rotator) NextFallback() (string, bool) {
	return r.fallback.next()
}

// PeekPrimary returns what NextPrimary would return without advancing.
func (r *Rotator) PeekPrimary() string {
	id, _ := r.primary.peek()
	return id
}

// FallbackSequence returns the fallback pool in its configured order. The
// fallback cursor is neither read nor advanced.
func (r *Rotator) FallbackSequence() []string {
	return slices.Clone(r.fallback.members)
}

// Primary returns a copy of the primary pool.
func (r *Rotator) Primary() []string {
	return slices.Clone(r.primary.members)
}

// Fallback returns a copy of the fallback pool.
func (r *Rotator) Fallback() []string {
	return slices.Clone(r.fallback.members)
}

// PrimaryCursor returns the current primary cursor position.
func (r *Rotator) PrimaryCursor() int {
	return r.primary.position()
}
