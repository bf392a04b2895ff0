package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when a call is rejected without executing
	// the operation: the circuit is open, or the half-open probe slot is
	// already taken.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when no tokens/capacity are
	// available for the caller's key.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when every concurrency slot is taken
	// and no slot frees up within the configured wait.
	ErrBulkheadFull = errors.New("resilience: bulkhead is full")

	// ErrTimeout is returned when an operation was abandoned after
	// exceeding its allotted duration.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// RetryExhaustedError is returned when all retry attempts were consumed.
// It wraps the error from the final attempt.
type RetryExhaustedError struct {
	// Attempts is the number of invocations that were made.
	Attempts int

	// Err is the error returned by the last attempt.
	Err error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("resilience: retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the error from the final attempt, so errors.Is and
// errors.As see through the wrapper.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a fail-fast rejection: the wrapped
// operation was never executed. Rejections do not count toward circuit
// error rates and are not retried by default.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrBulkheadFull)
}
