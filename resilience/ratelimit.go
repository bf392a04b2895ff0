package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// Algorithm selects the admission algorithm of a rate limiter.
type Algorithm int

const (
	// AlgorithmTokenBucket refills capacity continuously; each admitted
	// call consumes one token.
	AlgorithmTokenBucket Algorithm = iota
	// AlgorithmLeakyBucket drains admitted work at a fixed rate and
	// rejects when the bucket is full.
	AlgorithmLeakyBucket
	// AlgorithmSlidingWindow admits while the number of calls within the
	// trailing window stays below the maximum.
	AlgorithmSlidingWindow
)

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmTokenBucket:
		return "token-bucket"
	case AlgorithmLeakyBucket:
		return "leaky-bucket"
	case AlgorithmSlidingWindow:
		return "sliding-window"
	default:
		return "unknown"
	}
}

// RateLimiterConfig configures a keyed rate limiter.
type RateLimiterConfig struct {
	// Algorithm is the admission algorithm.
	// Default: AlgorithmTokenBucket
	Algorithm Algorithm

	// Capacity is the bucket capacity (token and leaky bucket).
	// Default: 10
	Capacity int

	// Rate is the refill rate (token bucket) or leak rate (leaky bucket)
	// in units per second.
	// Default: 100
	Rate float64

	// Window is the trailing window span (sliding window).
	// Default: 1 second
	Window time.Duration

	// MaxRequests is the admission bound within the window (sliding window).
	// Default: Capacity
	MaxRequests int

	// IdleTTL is how long an untouched key's state is kept before it is
	// eligible for eviction.
	// Default: 10 minutes
	IdleTTL time.Duration

	// MaxKeys bounds the number of keys tracked at once. When exceeded,
	// the least recently seen keys are evicted.
	// Default: 10000
	MaxKeys int

	// Clock supplies time for refill and window arithmetic.
	// Default: the system clock.
	Clock Clock
}

// RateLimiter decides per-key admission using one of three algorithms
// selected at construction. Keys are caller-supplied strings such as a
// client id; each key's state is independent.
//
// Refill computations use floating point derived from monotonic-clock
// deltas, so token counts never drift, never go negative, and never
// exceed capacity.
type RateLimiter struct {
	config RateLimiterConfig
	store  *limiterStore

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewRateLimiter creates a rate limiter, applying defaults for
// zero-valued config fields.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Capacity <= 0 {
		config.Capacity = 10
	}
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = config.Capacity
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}

	rl := &RateLimiter{config: config}
	rl.store = newLimiterStore(config.IdleTTL, config.MaxKeys, rl.newEntry)
	return rl
}

// NewTokenBucket creates a token bucket limiter: capacity tokens,
// refilled at refillRate tokens per second.
func NewTokenBucket(capacity int, refillRate float64) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		Algorithm: AlgorithmTokenBucket,
		Capacity:  capacity,
		Rate:      refillRate,
	})
}

// NewLeakyBucket creates a leaky bucket limiter: up to capacity queued
// admissions, draining at leakRate per second.
func NewLeakyBucket(capacity int, leakRate float64) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		Algorithm: AlgorithmLeakyBucket,
		Capacity:  capacity,
		Rate:      leakRate,
	})
}

// NewSlidingWindow creates a sliding window limiter admitting at most
// maxRequests calls per key within the trailing window.
func NewSlidingWindow(window time.Duration, maxRequests int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		Algorithm:   AlgorithmSlidingWindow,
		Window:      window,
		MaxRequests: maxRequests,
		Capacity:    maxRequests,
	})
}

// Check decides admission for key. When admitted it consumes one slot
// and reports the remaining allowance; otherwise ok is false.
func (rl *RateLimiter) Check(key string) (remaining uint64, ok bool) {
	now := rl.config.Clock.Now()

	rl.store.mu.Lock()
	entry := rl.store.getLocked(key, now)
	remaining, ok = rl.admitLocked(entry, now)
	entry.lastSeen = now
	rl.store.mu.Unlock()

	if ok {
		rl.allowed.Add(1)
	} else {
		rl.rejected.Add(1)
	}
	return remaining, ok
}

// Execute runs the operation if key is admitted, otherwise returns
// ErrRateLimitExceeded without executing it.
func (rl *RateLimiter) Execute(ctx context.Context, key string, op func(context.Context) error) error {
	if _, ok := rl.Check(key); !ok {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

// Snapshot returns cumulative admission counters and the tracked key count.
func (rl *RateLimiter) Snapshot() LimiterSnapshot {
	return LimiterSnapshot{
		Allowed:  rl.allowed.Load(),
		Rejected: rl.rejected.Load(),
		Keys:     rl.store.len(),
	}
}

// Len returns the number of keys currently tracked.
func (rl *RateLimiter) Len() int {
	return rl.store.len()
}

// newEntry initializes per-key state: token buckets start full, leaky
// buckets and window logs start empty.
func (rl *RateLimiter) newEntry(now time.Time) *bucketEntry {
	entry := &bucketEntry{updated: now, lastSeen: now}
	if rl.config.Algorithm == AlgorithmTokenBucket {
		entry.level = float64(rl.config.Capacity)
	}
	return entry
}

// admitLocked applies the configured algorithm to one key's state.
func (rl *RateLimiter) admitLocked(entry *bucketEntry, now time.Time) (uint64, bool) {
	switch rl.config.Algorithm {
	case AlgorithmLeakyBucket:
		return rl.admitLeakyLocked(entry, now)
	case AlgorithmSlidingWindow:
		return rl.admitSlidingLocked(entry, now)
	default:
		return rl.admitTokenLocked(entry, now)
	}
}

func (rl *RateLimiter) admitTokenLocked(entry *bucketEntry, now time.Time) (uint64, bool) {
	elapsed := now.Sub(entry.updated).Seconds()
	entry.updated = now

	entry.level += elapsed * rl.config.Rate
	if entry.level > float64(rl.config.Capacity) {
		entry.level = float64(rl.config.Capacity)
	}

	if entry.level < 1 {
		return 0, false
	}
	entry.level--
	return uint64(entry.level), true
}

func (rl *RateLimiter) admitLeakyLocked(entry *bucketEntry, now time.Time) (uint64, bool) {
	elapsed := now.Sub(entry.updated).Seconds()
	entry.updated = now

	entry.level -= elapsed * rl.config.Rate
	if entry.level < 0 {
		entry.level = 0
	}

	if entry.level+1 > float64(rl.config.Capacity) {
		return 0, false
	}
	entry.level++
	return uint64(float64(rl.config.Capacity) - entry.level), true
}

func (rl *RateLimiter) admitSlidingLocked(entry *bucketEntry, now time.Time) (uint64, bool) {
	cutoff := now.Add(-rl.config.Window)

	// Drop arrivals that slid out of the window. Arrivals are appended
	// in time order, so trimming the prefix suffices.
	keep := 0
	for keep < len(entry.arrivals) && entry.arrivals[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		entry.arrivals = append(entry.arrivals[:0], entry.arrivals[keep:]...)
	}

	if len(entry.arrivals) >= rl.config.MaxRequests {
		return 0, false
	}
	entry.arrivals = append(entry.arrivals, now)
	return uint64(rl.config.MaxRequests - len(entry.arrivals)), true
}
