package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ViewWay/nexus-sub001/resilience"
)

func failingOp(ctx context.Context) error { return errors.New("down") }
func okOp(ctx context.Context) error      { return nil }

func TestCircuitChecker_AllClosed(t *testing.T) {
	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{})
	registry.GetOrCreate("billing")
	registry.GetOrCreate("search")

	check := NewCircuitChecker(registry, CircuitCheckerConfig{})

	if check.Name() != "circuits" {
		t.Errorf("Name() = %q, want circuits", check.Name())
	}

	result := check.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	if len(result.Details) != 2 {
		t.Errorf("Details has %d entries, want 2", len(result.Details))
	}
}

func TestCircuitChecker_OpenCircuitDegrades(t *testing.T) {
	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{
		ErrorThreshold: 1.0,
		MinRequests:    1,
		OpenDuration:   time.Hour,
	})
	cb := registry.GetOrCreate("billing")
	_ = cb.Execute(context.Background(), failingOp)

	check := NewCircuitChecker(registry, CircuitCheckerConfig{})
	result := check.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", result.Status)
	}

	detail, ok := result.Details["billing"].(map[string]any)
	if !ok {
		t.Fatal("Details missing entry for billing")
	}
	if detail["state"] != "open" {
		t.Errorf("state = %v, want open", detail["state"])
	}
}

func TestCircuitChecker_OpenCircuitUnhealthyWhenConfigured(t *testing.T) {
	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{
		ErrorThreshold: 1.0,
		MinRequests:    1,
		OpenDuration:   time.Hour,
	})
	cb := registry.GetOrCreate("billing")
	_ = cb.Execute(context.Background(), failingOp)

	check := NewCircuitChecker(registry, CircuitCheckerConfig{UnhealthyWhenOpen: true})
	result := check.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
	if result.Error == nil {
		t.Error("Error should be set when unhealthy")
	}
}

func TestCircuitChecker_CancelledContext(t *testing.T) {
	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{})
	check := NewCircuitChecker(registry, CircuitCheckerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := check.Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
}

func TestLimiterChecker_Defaults(t *testing.T) {
	limiter := resilience.NewTokenBucket(10, 1)
	check := NewLimiterChecker(limiter, LimiterCheckerConfig{})

	if check.Name() != "ratelimit" {
		t.Errorf("Name() = %q, want ratelimit", check.Name())
	}
	if check.config.WarningRejectionRate != 0.25 {
		t.Errorf("WarningRejectionRate = %v, want 0.25", check.config.WarningRejectionRate)
	}
	if check.config.CriticalRejectionRate != 0.75 {
		t.Errorf("CriticalRejectionRate = %v, want 0.75", check.config.CriticalRejectionRate)
	}
}

func TestLimiterChecker_NoTraffic(t *testing.T) {
	limiter := resilience.NewTokenBucket(10, 1)
	check := NewLimiterChecker(limiter, LimiterCheckerConfig{})

	result := check.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
}

func TestLimiterChecker_NormalTraffic(t *testing.T) {
	limiter := resilience.NewTokenBucket(100, 1)
	for i := 0; i < 10; i++ {
		limiter.Check("client")
	}

	check := NewLimiterChecker(limiter, LimiterCheckerConfig{})
	result := check.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	if result.Details["allowed"].(uint64) != 10 {
		t.Errorf("allowed = %v, want 10", result.Details["allowed"])
	}
}

func TestLimiterChecker_RejectionPressure(t *testing.T) {
	limiter := resilience.NewTokenBucket(1, 0.001)

	// One grant, then a run of rejections drives the ratio past critical.
	for i := 0; i < 10; i++ {
		limiter.Check("client")
	}

	check := NewLimiterChecker(limiter, LimiterCheckerConfig{
		WarningRejectionRate:  0.25,
		CriticalRejectionRate: 0.75,
	})
	result := check.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
}

func TestLimiterChecker_DegradedBand(t *testing.T) {
	limiter := resilience.NewTokenBucket(6, 0.001)

	// 6 grants, 4 rejections: 40% rejection rate.
	for i := 0; i < 10; i++ {
		limiter.Check("client")
	}

	check := NewLimiterChecker(limiter, LimiterCheckerConfig{
		WarningRejectionRate:  0.25,
		CriticalRejectionRate: 0.75,
	})
	result := check.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", result.Status)
	}
}

func TestCircuitChecker_WithMonitor(t *testing.T) {
	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{
		ErrorThreshold: 1.0,
		MinRequests:    1,
		OpenDuration:   time.Hour,
	})
	cb := registry.GetOrCreate("billing")
	_ = cb.Execute(context.Background(), okOp)

	limiter := resilience.NewTokenBucket(100, 1)

	m := NewMonitor()
	m.WatchCircuits(registry, CircuitCheckerConfig{})
	m.WatchLimiter(limiter, LimiterCheckerConfig{})

	if report := m.RunAll(context.Background()); report.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", report.Status)
	}

	// Trip the breaker and verify the report degrades.
	_ = cb.Execute(context.Background(), failingOp)

	report := m.RunAll(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status after trip = %v, want StatusDegraded", report.Status)
	}
	if report.Circuits.Open != 1 {
		t.Errorf("Circuits.Open = %d, want 1", report.Circuits.Open)
	}
}
