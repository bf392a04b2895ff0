package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// BulkheadConfig configures a concurrency bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of operations allowed in flight.
	// Default: 10
	MaxConcurrent int

	// MaxWait is how long an admission may wait for a slot before the
	// call is rejected. Zero rejects immediately when full.
	MaxWait time.Duration
}

// Bulkhead caps the number of operations in flight against one logical
// dependency. Like the rate limiter it is an admission gate: a full
// bulkhead rejects with ErrBulkheadFull before the operation runs, and
// the rejection is excluded from circuit error rates and default retry.
type Bulkhead struct {
	config BulkheadConfig
	slots  chan struct{}

	mu       sync.Mutex
	inFlight int
	peak     int

	admitted atomic.Uint64
	rejected atomic.Uint64
}

// NewBulkhead creates a bulkhead, applying defaults for zero-valued
// config fields.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		slots:  make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire claims a concurrency slot. When all slots are taken it waits
// up to MaxWait, then returns ErrBulkheadFull. Context cancellation
// while waiting returns ctx.Err() and is not counted as a rejection.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		b.noteAdmission()
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.slots <- struct{}{}:
		b.noteAdmission()
		return nil
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) noteAdmission() {
	b.admitted.Add(1)
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.mu.Unlock()
}

// Release returns a slot claimed by Acquire. Releasing without a
// matching Acquire is a no-op.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	default:
	}
}

// Execute runs the operation inside a slot, releasing it when the
// operation returns.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Snapshot returns a point-in-time view of the bulkhead's occupancy
// and cumulative admission counters.
func (b *Bulkhead) Snapshot() BulkheadSnapshot {
	b.mu.Lock()
	inFlight, peak := b.inFlight, b.peak
	b.mu.Unlock()

	return BulkheadSnapshot{
		InFlight: inFlight,
		Peak:     peak,
		Capacity: b.config.MaxConcurrent,
		Admitted: b.admitted.Load(),
		Rejected: b.rejected.Load(),
	}
}

// BulkheadSnapshot is a point-in-time view of a bulkhead.
type BulkheadSnapshot struct {
	// InFlight is the number of slots currently held.
	InFlight int

	// Peak is the highest InFlight observed since construction.
	Peak int

	// Capacity is the configured MaxConcurrent.
	Capacity int

	// Admitted and Rejected are cumulative admission decisions.
	Admitted uint64
	Rejected uint64
}
