package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy retries transient failures with exponential backoff and
// jitter, bounded by a maximum attempt count.
//
// Policies are built with the chainable setters and are immutable once
// in use; one policy may serve any number of concurrent calls. Admission
// control is not the retry loop's job: compose the policy around a
// circuit breaker or rate limiter so gating is re-evaluated per attempt.
type RetryPolicy struct {
	maxAttempts  int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	jitterFactor float64
	retryable    func(err error) bool
	onRetry      func(attempt int, err error, delay time.Duration)
	rng          *rand.Rand
}

// NewRetryPolicy creates a policy with defaults: 3 attempts, 100ms base
// backoff, 30s backoff cap, 0.25 jitter factor, and a retryable
// predicate accepting every error except fail-fast rejections.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:  3,
		baseBackoff:  100 * time.Millisecond,
		maxBackoff:   30 * time.Second,
		jitterFactor: 0.25,
		retryable:    func(err error) bool { return err != nil && !IsRejection(err) },
	}
}

// MaxAttempts sets the total invocation bound, including the first call.
func (p *RetryPolicy) MaxAttempts(n int) *RetryPolicy {
	if n > 0 {
		p.maxAttempts = n
	}
	return p
}

// BaseBackoff sets the delay before the first retry.
func (p *RetryPolicy) BaseBackoff(d time.Duration) *RetryPolicy {
	if d > 0 {
		p.baseBackoff = d
	}
	return p
}

// MaxBackoff caps the computed backoff delay.
func (p *RetryPolicy) MaxBackoff(d time.Duration) *RetryPolicy {
	if d > 0 {
		p.maxBackoff = d
	}
	return p
}

// Jitter sets the jitter factor: each delay gains a random addition in
// [0, delay*factor), spreading synchronized callers apart.
func (p *RetryPolicy) Jitter(factor float64) *RetryPolicy {
	if factor >= 0 {
		p.jitterFactor = factor
	}
	return p
}

// Retryable sets the predicate deciding if an error triggers a retry.
func (p *RetryPolicy) Retryable(pred func(err error) bool) *RetryPolicy {
	if pred != nil {
		p.retryable = pred
	}
	return p
}

// OnRetry sets a hook called before each inter-attempt sleep.
func (p *RetryPolicy) OnRetry(fn func(attempt int, err error, delay time.Duration)) *RetryPolicy {
	p.onRetry = fn
	return p
}

// Seed installs a deterministic random source for jitter so tests can
// assert delay bounds. Seeded policies are not safe for concurrent calls.
func (p *RetryPolicy) Seed(seed uint64) *RetryPolicy {
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	p.rng = rand.New(rand.NewSource(int64(seed)))
	return p
}

// Attempts returns the configured invocation bound.
func (p *RetryPolicy) Attempts() int {
	return p.maxAttempts
}

// NextDelay returns the sleep before the retry following the given
// zero-based attempt: min(base*2^attempt, max) plus random jitter.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := p.backoffDelay(attempt)
	if p.jitterFactor > 0 && delay > 0 {
		delay += time.Duration(p.randFloat() * float64(delay) * p.jitterFactor)
	}
	return delay
}

func (p *RetryPolicy) backoffDelay(attempt int) time.Duration {
	backoff := float64(p.baseBackoff) * math.Pow(2, float64(attempt))
	if backoff >= float64(p.maxBackoff) {
		return p.maxBackoff
	}
	return time.Duration(backoff)
}

func (p *RetryPolicy) randFloat() float64 {
	if p.rng != nil {
		return p.rng.Float64()
	}
	return rand.Float64()
}

// Execute runs the operation under the policy.
//
// The operation is invoked at most MaxAttempts times. A non-retryable
// error is returned unmodified; once attempts are exhausted the final
// error is returned wrapped in *RetryExhaustedError. The inter-attempt
// sleep is the only suspension point and honors ctx cancellation.
func (p *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.retryable(err) {
			return err
		}
		if attempt == p.maxAttempts-1 {
			break
		}

		delay := p.NextDelay(attempt)
		if p.onRetry != nil {
			p.onRetry(attempt+1, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &RetryExhaustedError{Attempts: p.maxAttempts, Err: lastErr}
}

// Retry runs an operation that returns a value under the policy. The
// value from the last invocation is returned alongside the error.
func Retry[T any](ctx context.Context, policy *RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := policy.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
