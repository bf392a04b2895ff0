package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ViewWay/nexus-sub001/resilience"
)

// Metrics records execution metrics for guarded calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed call with duration and error status.
	// Rejections (circuit open, rate limited) should go through
	// RecordRejection instead.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRejection records a call refused at an admission gate.
	RecordRejection(ctx context.Context, meta CallMeta, reason string)

	// RecordStateTransition records a circuit breaker state change.
	RecordStateTransition(ctx context.Context, circuit string, from, to resilience.CircuitState)
}

// Rejection reasons as recorded on resilience.rejections.total.
const (
	ReasonCircuitOpen  = "circuit_open"
	ReasonRateLimited  = "rate_limited"
	ReasonBulkheadFull = "bulkhead_full"
	ReasonOther        = "other"
)

// RejectionReason classifies a rejection error into a metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return ReasonRateLimited
	case errors.Is(err, resilience.ErrBulkheadFull):
		return ReasonBulkheadFull
	default:
		return ReasonOther
	}
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	callCount    metric.Int64Counter
	errorCount   metric.Int64Counter
	rejectCount  metric.Int64Counter
	transitions  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	callCount, err := meter.Int64Counter(
		"resilience.calls.total",
		metric.WithDescription("Total number of guarded calls that reached the operation"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"resilience.calls.errors",
		metric.WithDescription("Total number of guarded calls that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	rejectCount, err := meter.Int64Counter(
		"resilience.rejections.total",
		metric.WithDescription("Total number of calls refused at an admission gate"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"resilience.circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.call.duration_ms",
		metric.WithDescription("Guarded call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		callCount:    callCount,
		errorCount:   errorCount,
		rejectCount:  rejectCount,
		transitions:  transitions,
		durationHist: durationHist,
	}, nil
}

// RecordCall records metrics for a completed call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.callCount.Add(ctx, 1, opt)

	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordRejection records a call refused before the operation ran.
func (m *metricsImpl) RecordRejection(ctx context.Context, meta CallMeta, reason string) {
	attrs := append(meta.attributes(),
		attribute.String("resilience.reason", reason),
	)
	m.rejectCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStateTransition records a circuit breaker state change.
func (m *metricsImpl) RecordStateTransition(ctx context.Context, circuit string, from, to resilience.CircuitState) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resilience.circuit", circuit),
		attribute.String("resilience.from", from.String()),
		attribute.String("resilience.to", to.String()),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordRejection(ctx context.Context, meta CallMeta, reason string) {}

func (m *noopMetrics) RecordStateTransition(ctx context.Context, circuit string, from, to resilience.CircuitState) {
}
