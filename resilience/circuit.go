package resilience

import (
	"context"
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// StateClosed means calls flow through and outcomes are recorded.
	StateClosed CircuitState = iota
	// StateOpen means calls fail fast without executing the operation.
	StateOpen
	// StateHalfOpen means a single probe call is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures a circuit breaker.
type CircuitConfig struct {
	// ErrorThreshold is the error rate in [0,1] at which the circuit opens.
	// Default: 0.5
	ErrorThreshold float64

	// MinRequests is the minimum number of recorded calls before the
	// error rate is evaluated.
	// Default: 10
	MinRequests int

	// OpenDuration is how long the circuit stays open before admitting
	// a half-open probe.
	// Default: 30 seconds
	OpenDuration time.Duration

	// SuccessThreshold is the number of consecutive probe successes
	// required to close the circuit from half-open.
	// Default: 1
	SuccessThreshold int

	// CallTimeout bounds each call executed through the breaker. A
	// timed-out call counts as a failure. Zero disables the bound.
	CallTimeout time.Duration

	// IsFailure determines if an error counts toward the error rate.
	// Default: all non-nil errors except fail-fast rejections
	// (ErrCircuitOpen, ErrRateLimitExceeded) count as failures.
	IsFailure func(err error) bool

	// OnStateChange is called when the circuit state changes. The hook
	// runs synchronously while the breaker's mutex is held, so it must
	// not call back into the breaker (State, Metrics, Execute); record
	// the transition and return.
	OnStateChange func(name string, from, to CircuitState)

	// Clock supplies time for open-duration checks.
	// Default: the system clock.
	Clock Clock
}

// CircuitBreaker is a named fault boundary gating calls to one logical
// dependency based on a rolling error rate.
//
// State transitions follow exactly four paths: Closed->Open when the
// window holds at least MinRequests samples and the error rate reaches
// ErrorThreshold; Open->HalfOpen after OpenDuration elapses; HalfOpen->
// Closed after SuccessThreshold consecutive probe successes; HalfOpen->
// Open on any probe failure. Transitions are atomic under the breaker's
// mutex: concurrent callers never observe a partially applied one. The
// mutex is held only around bookkeeping, never across the operation.
type CircuitBreaker struct {
	name   string
	config CircuitConfig

	mu             sync.Mutex
	state          CircuitState
	windowRequests int
	windowFailures int
	probeSuccesses int
	probing        bool
	openedAt       time.Time
	lastTransition time.Time

	counters counters
}

// NewCircuitBreaker creates a named circuit breaker, applying defaults
// for zero-valued config fields.
func NewCircuitBreaker(name string, config CircuitConfig) *CircuitBreaker {
	if config.ErrorThreshold <= 0 || config.ErrorThreshold > 1 {
		config.ErrorThreshold = 0.5
	}
	if config.MinRequests <= 0 {
		config.MinRequests = 10
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil && !IsRejection(err) }
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}

	return &CircuitBreaker{
		name:           name,
		config:         config,
		state:          StateClosed,
		lastTransition: config.Clock.Now(),
	}
}

// Name returns the circuit's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs the operation through the circuit breaker.
//
// When the circuit is open, or a half-open probe is already outstanding,
// Execute returns ErrCircuitOpen without invoking the operation. A
// configured CallTimeout is applied around the operation and a timeout
// counts as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	probe, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	if cb.config.CallTimeout > 0 {
		err = WrapWithTimeout(ctx, cb.config.CallTimeout, op)
	} else {
		err = op(ctx)
	}

	cb.afterRequest(probe, err)
	return err
}

// Call runs an operation that returns a value through the breaker.
// The zero value of T is returned alongside any rejection or failure.
func Call[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// State returns the current circuit state, applying the Open->HalfOpen
// transition if the open duration has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked(cb.config.Clock.Now())
}

// Reset returns the circuit to closed and clears the rolling window.
// Safe to call concurrently with in-flight calls; those calls complete
// but their outcomes no longer affect the cleared window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed, cb.config.Clock.Now())
}

// ForceOpen trips the circuit regardless of the error rate. Subsequent
// calls fail fast until OpenDuration elapses or the circuit is reset.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateOpen, cb.config.Clock.Now())
}

// ForceClose closes the circuit regardless of its current state and
// clears the rolling window.
func (cb *CircuitBreaker) ForceClose() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed, cb.config.Clock.Now())
}

// Metrics returns a snapshot of the circuit's counters and state.
func (cb *CircuitBreaker) Metrics() CounterSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CounterSnapshot{
		State:          cb.currentStateLocked(cb.config.Clock.Now()),
		WindowRequests: cb.windowRequests,
		WindowFailures: cb.windowFailures,
		ProbeSuccesses: cb.probeSuccesses,
		Successes:      cb.counters.successes.Load(),
		Failures:       cb.counters.failures.Load(),
		Rejections:     cb.counters.rejections.Load(),
		Transitions:    cb.counters.transitions.Load(),
		LastTransition: cb.lastTransition,
	}
}

// beforeRequest decides admission. It reports whether the admitted call
// is the half-open probe.
func (cb *CircuitBreaker) beforeRequest() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked(cb.config.Clock.Now()) {
	case StateOpen:
		cb.counters.rejections.Add(1)
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			// Single-probe policy: reject until the outstanding probe resolves.
			cb.counters.rejections.Add(1)
			return false, ErrCircuitOpen
		}
		cb.probing = true
		return true, nil
	}

	return false, nil
}

// afterRequest records the outcome of an admitted call. Outcomes are
// only applied to the state they were admitted under, so administrative
// transitions racing an in-flight call cannot corrupt the window or
// probe accounting.
func (cb *CircuitBreaker) afterRequest(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)

	// A rejection from an inner gate means the operation never ran, so
	// it is neither a success nor a failure sample. The probe slot is
	// still released.
	if !failed && err != nil && IsRejection(err) {
		if probe {
			cb.probing = false
		}
		return
	}

	if failed {
		cb.counters.failures.Add(1)
	} else {
		cb.counters.successes.Add(1)
	}

	now := cb.config.Clock.Now()

	if probe {
		if cb.state != StateHalfOpen {
			// The circuit was forced elsewhere while the probe ran.
			return
		}
		cb.probing = false
		if failed {
			cb.transitionLocked(StateOpen, now)
			return
		}
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed, now)
		}
		return
	}

	if cb.state != StateClosed {
		return
	}

	cb.windowRequests++
	if failed {
		cb.windowFailures++
	}

	if cb.windowRequests >= cb.config.MinRequests {
		rate := float64(cb.windowFailures) / float64(cb.windowRequests)
		if rate >= cb.config.ErrorThreshold {
			cb.transitionLocked(StateOpen, now)
		}
	}
}

// currentStateLocked returns the effective state, lazily applying the
// Open->HalfOpen transition once the open duration has elapsed.
func (cb *CircuitBreaker) currentStateLocked(now time.Time) CircuitState {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.config.OpenDuration {
		cb.transitionLocked(StateHalfOpen, now)
	}
	return cb.state
}

// transitionLocked moves the machine to a new state and resets the
// bookkeeping that belongs to it. No-op when already in that state,
// except Closed->Closed which still clears the window (Reset semantics).
func (cb *CircuitBreaker) transitionLocked(to CircuitState, now time.Time) {
	from := cb.state

	switch to {
	case StateClosed:
		cb.windowRequests = 0
		cb.windowFailures = 0
		cb.probeSuccesses = 0
		cb.probing = false
	case StateOpen:
		cb.openedAt = now
		cb.probing = false
	case StateHalfOpen:
		cb.probeSuccesses = 0
		cb.probing = false
	}

	if from == to {
		return
	}

	cb.state = to
	cb.lastTransition = now
	cb.counters.transitions.Add(1)

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}
