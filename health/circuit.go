package health

import (
	"context"
	"fmt"

	"github.com/ViewWay/nexus-sub001/resilience"
)

// CircuitCheckerConfig configures the circuit breaker health checker.
type CircuitCheckerConfig struct {
	// UnhealthyWhenOpen reports open circuits as unhealthy instead of
	// degraded. An open circuit usually means a downstream dependency
	// is failing while the service itself can still serve, so the
	// default is degraded.
	UnhealthyWhenOpen bool
}

// CircuitChecker reports the state of every breaker in a registry.
type CircuitChecker struct {
	registry *resilience.CircuitRegistry
	config   CircuitCheckerConfig
}

// NewCircuitChecker creates a health checker over a circuit registry.
func NewCircuitChecker(registry *resilience.CircuitRegistry, config CircuitCheckerConfig) *CircuitChecker {
	return &CircuitChecker{registry: registry, config: config}
}

// Name returns the name of this checker.
func (c *CircuitChecker) Name() string {
	return "circuits"
}

// Check inspects every registered breaker. Open circuits degrade the
// result (or mark it unhealthy per config); half-open circuits always
// report degraded while the probe is in flight.
func (c *CircuitChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	snapshots := c.registry.Snapshots()

	details := make(map[string]any, len(snapshots))
	var open, halfOpen []string
	for name, snap := range snapshots {
		details[name] = map[string]any{
			"state":      snap.State.String(),
			"error_rate": snap.ErrorRate(),
			"successes":  snap.Successes,
			"failures":   snap.Failures,
			"rejections": snap.Rejections,
		}
		switch snap.State {
		case resilience.StateOpen:
			open = append(open, name)
		case resilience.StateHalfOpen:
			halfOpen = append(halfOpen, name)
		}
	}

	switch {
	case len(open) > 0 && c.config.UnhealthyWhenOpen:
		return Unhealthy(
			fmt.Sprintf("%d of %d circuits open", len(open), len(snapshots)),
			ErrCheckFailed,
		).WithDetails(details)
	case len(open) > 0:
		return Degraded(
			fmt.Sprintf("%d of %d circuits open", len(open), len(snapshots)),
		).WithDetails(details)
	case len(halfOpen) > 0:
		return Degraded(
			fmt.Sprintf("%d of %d circuits half-open", len(halfOpen), len(snapshots)),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("all %d circuits closed", len(snapshots)),
		).WithDetails(details)
	}
}

// LimiterCheckerConfig configures the rate limiter health checker.
type LimiterCheckerConfig struct {
	// WarningRejectionRate is the rejected/total ratio that triggers
	// degraded status. Value should be between 0 and 1. Default: 0.25
	WarningRejectionRate float64

	// CriticalRejectionRate is the rejected/total ratio that triggers
	// unhealthy status. Value should be between 0 and 1. Default: 0.75
	CriticalRejectionRate float64
}

// LimiterChecker reports rejection pressure on a rate limiter.
type LimiterChecker struct {
	limiter *resilience.RateLimiter
	config  LimiterCheckerConfig
}

// NewLimiterChecker creates a health checker over a rate limiter.
func NewLimiterChecker(limiter *resilience.RateLimiter, config LimiterCheckerConfig) *LimiterChecker {
	if config.WarningRejectionRate <= 0 || config.WarningRejectionRate >= 1 {
		config.WarningRejectionRate = 0.25
	}
	if config.CriticalRejectionRate <= 0 || config.CriticalRejectionRate >= 1 {
		config.CriticalRejectionRate = 0.75
	}
	if config.CriticalRejectionRate < config.WarningRejectionRate {
		config.CriticalRejectionRate = config.WarningRejectionRate
	}

	return &LimiterChecker{limiter: limiter, config: config}
}

// Name returns the name of this checker.
func (c *LimiterChecker) Name() string {
	return "ratelimit"
}

// Check computes the cumulative rejection ratio. A high ratio means
// clients are persistently over their limits or limits are misconfigured.
func (c *LimiterChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	snap := c.limiter.Snapshot()
	total := snap.Allowed + snap.Rejected

	details := map[string]any{
		"allowed":  snap.Allowed,
		"rejected": snap.Rejected,
		"keys":     snap.Keys,
	}

	if total == 0 {
		return Healthy("no traffic observed").WithDetails(details)
	}

	ratio := float64(snap.Rejected) / float64(total)
	details["rejection_rate"] = ratio

	if ratio >= c.config.CriticalRejectionRate {
		return Unhealthy(
			fmt.Sprintf("rejection rate critical: %.1f%%", ratio*100),
			ErrCheckFailed,
		).WithDetails(details)
	}
	if ratio >= c.config.WarningRejectionRate {
		return Degraded(
			fmt.Sprintf("rejection rate high: %.1f%%", ratio*100),
		).WithDetails(details)
	}
	return Healthy(
		fmt.Sprintf("rejection rate normal: %.1f%%", ratio*100),
	).WithDetails(details)
}
