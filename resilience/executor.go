package resilience

import (
	"context"
	"time"
)

// Executor composes resilience policies around an operation.
type Executor struct {
	timeout  *TimeoutGuard
	retry    *RetryPolicy
	circuit  *CircuitBreaker
	limiter  *RateLimiter
	bulkhead *Bulkhead
	key      string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor from the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTimeout bounds the whole composed call.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeoutGuard(timeout)
	}
}

// WithTimeoutGuard bounds the whole composed call with an existing guard.
func WithTimeoutGuard(g *TimeoutGuard) ExecutorOption {
	return func(e *Executor) {
		e.timeout = g
	}
}

// WithRetryPolicy retries the gated call per the policy.
func WithRetryPolicy(p *RetryPolicy) ExecutorOption {
	return func(e *Executor) {
		e.retry = p
	}
}

// WithCircuitBreaker gates each attempt through the breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuit = cb
	}
}

// WithRateLimiter gates each attempt through the limiter under the
// given key. ExecuteForKey overrides the key per call.
func WithRateLimiter(rl *RateLimiter, key string) ExecutorOption {
	return func(e *Executor) {
		e.limiter = rl
		e.key = key
	}
}

// WithBulkhead caps concurrent executions of the operation itself. The
// bulkhead is the innermost gate: a slot is claimed only after the
// limiter and breaker have admitted the attempt.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// Execute runs the operation through the configured stack using the
// executor's default rate-limit key.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return e.ExecuteForKey(ctx, e.key, op)
}

// ExecuteForKey runs the operation through the configured stack,
// rate-limiting under the given key.
//
// The stack is Timeout(Retry(CircuitBreaker(RateLimiter(Bulkhead(op))))):
// the timeout bounds the caller's total wait including backoff sleeps,
// retry sits outside the gates so breaker and limiter admission is
// re-evaluated on every attempt, and the bulkhead claims a slot only
// for the operation itself.
func (e *Executor) ExecuteForKey(ctx context.Context, key string, op func(context.Context) error) error {
	execute := op

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	if e.limiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.limiter.Execute(ctx, key, inner)
		}
	}

	if e.circuit != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuit.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Wrap(ctx, inner)
		}
	}

	return execute(ctx)
}
