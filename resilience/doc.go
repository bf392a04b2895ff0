// Package resilience wraps asynchronous operations with fault-tolerance
// policies: fail fast when a dependency is unhealthy, bound throughput
// per caller, retry transient failures with backoff, and bound wait time.
//
// # Policies
//
//   - Circuit Breaker: a named fault boundary that opens when the rolling
//     error rate crosses a threshold, fails fast while open, and recovers
//     through a single half-open probe.
//
//   - Rate Limiter: per-key admission with a choice of token bucket,
//     leaky bucket, or sliding window, backed by a bounded key store.
//
//   - Retry Policy: exponential backoff with jitter, bounded attempts,
//     conditioned on error classification.
//
//   - Bulkhead: a concurrency cap that rejects calls while every slot
//     is held, isolating one dependency's slowness from the rest.
//
//   - Timeout Guard: races the operation against a timer and abandons it
//     when the timer fires first.
//
// # Composition
//
// Composition is caller-controlled. Policies share the
// Execute(ctx, func(ctx) error) shape, so they nest directly, or an
// Executor assembles the typical stack for you:
//
//	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{
//	    ErrorThreshold:   0.5,
//	    MinRequests:      10,
//	    OpenDuration:     30 * time.Second,
//	    SuccessThreshold: 2,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithTimeout(5*time.Second),
//	    resilience.WithRetryPolicy(resilience.NewRetryPolicy().MaxAttempts(3)),
//	    resilience.WithCircuitBreaker(registry.GetOrCreate("billing")),
//	    resilience.WithRateLimiter(resilience.NewTokenBucket(100, 50), "default"),
//	)
//
//	err := executor.ExecuteForKey(ctx, clientID, func(ctx context.Context) error {
//	    return callBilling(ctx)
//	})
//
// Rejections surface as ErrCircuitOpen, ErrRateLimitExceeded and
// ErrBulkheadFull without executing the operation; ErrTimeout and the
// operation's own errors
// propagate through the retry loop until attempts are exhausted. Mapping
// these to user-facing responses is the caller's concern.
//
// All state is process-lifetime and rebuilt on restart; nothing is
// persisted or coordinated across processes.
package resilience
