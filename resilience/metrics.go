package resilience

import (
	"sync/atomic"
	"time"
)

// counters holds cumulative per-component counts. Increments happen on
// the hot path, so they are atomics rather than lock-guarded fields.
type counters struct {
	successes   atomic.Uint64
	failures    atomic.Uint64
	rejections  atomic.Uint64
	transitions atomic.Uint64
}

// CounterSnapshot is a point-in-time view of a circuit breaker's state
// and counters, suitable for handing to an observability collaborator.
type CounterSnapshot struct {
	// State is the effective circuit state at snapshot time.
	State CircuitState

	// WindowRequests and WindowFailures are the rolling window samples
	// recorded since the last transition to closed.
	WindowRequests int
	WindowFailures int

	// ProbeSuccesses is the consecutive half-open probe success count.
	ProbeSuccesses int

	// Cumulative counts over the breaker's lifetime.
	Successes   uint64
	Failures    uint64
	Rejections  uint64
	Transitions uint64

	// LastTransition is when the state last changed.
	LastTransition time.Time
}

// ErrorRate returns the window's failure ratio, or 0 when empty.
func (s CounterSnapshot) ErrorRate() float64 {
	if s.WindowRequests == 0 {
		return 0
	}
	return float64(s.WindowFailures) / float64(s.WindowRequests)
}

// LimiterSnapshot is a point-in-time view of a rate limiter's counters.
type LimiterSnapshot struct {
	// Allowed and Rejected are cumulative admission decisions across
	// all keys.
	Allowed  uint64
	Rejected uint64

	// Keys is the number of keys currently tracked by the store.
	Keys int
}
