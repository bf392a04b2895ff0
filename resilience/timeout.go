package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutGuard bounds the execution time of an operation.
type TimeoutGuard struct {
	timeout time.Duration
}

// NewTimeoutGuard creates a timeout guard.
// A non-positive duration defaults to 30 seconds.
func NewTimeoutGuard(timeout time.Duration) *TimeoutGuard {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TimeoutGuard{timeout: timeout}
}

// Timeout returns the configured duration.
func (g *TimeoutGuard) Timeout() time.Duration {
	return g.timeout
}

// Wrap races the operation against the guard's timer. If the timer fires
// first the caller receives ErrTimeout immediately and any late result is
// discarded; the operation keeps the derived context, so cancellation is
// cooperative and it may stop early by honoring ctx.Done. If the caller's
// own context ends first, its error is returned instead.
func (g *TimeoutGuard) Wrap(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Buffered so the abandoned goroutine can deliver its late result
	// and exit instead of leaking.
	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// WrapWithTimeout is a convenience function bounding a single operation.
func WrapWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	return NewTimeoutGuard(timeout).Wrap(ctx, op)
}
