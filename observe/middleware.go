package observe

import (
	"context"
	"time"

	"github.com/ViewWay/nexus-sub001/resilience"
)

// Op is the operation signature Middleware instruments. It matches the
// shape executed by circuit breakers, retry policies, and executors.
type Op = func(ctx context.Context) error

// Middleware wraps guarded calls with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Instrument() returns a thread-safe Op.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped operation are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Instrument wraps an operation with tracing, metrics, and logging.
// The wrapped Op is intended to sit outside the resilience policies, so
// rejections surfacing from the gates are recorded as rejections rather
// than call failures.
func (m *Middleware) Instrument(meta CallMeta, op Op) Op {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := op(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)

		callLogger := m.logger.WithCall(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		switch {
		case err == nil:
			m.metrics.RecordCall(ctx, meta, duration, nil)
			callLogger.Info(ctx, "call completed", fields...)
		case resilience.IsRejection(err):
			reason := RejectionReason(err)
			m.metrics.RecordRejection(ctx, meta, reason)
			callLogger.Warn(ctx, "call rejected",
				append(fields, Field{Key: "reason", Value: reason})...)
		default:
			m.metrics.RecordCall(ctx, meta, duration, err)
			callLogger.Error(ctx, "call failed",
				append(fields, Field{Key: "error", Value: err.Error()})...)
		}

		return err
	}
}

// StateChangeHook returns a callback suitable for
// resilience.CircuitConfig.OnStateChange that records transitions as
// metrics and log records. The breaker invokes the hook while holding
// its lock, so the hook only touches counters and the logger.
func (m *Middleware) StateChangeHook() func(name string, from, to resilience.CircuitState) {
	return func(name string, from, to resilience.CircuitState) {
		ctx := context.Background()
		m.metrics.RecordStateTransition(ctx, name, from, to)
		m.logger.Warn(ctx, "circuit state changed",
			Field{Key: "circuit", Value: name},
			Field{Key: "from", Value: from.String()},
			Field{Key: "to", Value: to.String()},
		)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
