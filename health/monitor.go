package health

import (
	"context"
	"sync"
	"time"

	"github.com/ViewWay/nexus-sub001/resilience"
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Timeout bounds one full probe run. Checks still running at the
	// deadline are reported unhealthy with ErrCheckTimeout.
	// Default: 10 seconds
	Timeout time.Duration

	// Sequential runs checks one at a time instead of fanning out.
	Sequential bool
}

// Monitor runs health checks over the engine's guards and reduces them
// into a single Report. A circuit registry or rate limiter registered
// through WatchCircuits/WatchLimiter also contributes a summary
// section to every report.
type Monitor struct {
	config MonitorConfig

	mu       sync.RWMutex
	order    []string
	checks   map[string]Checker
	registry *resilience.CircuitRegistry
	limiter  *resilience.RateLimiter
}

// NewMonitor creates a monitor, applying defaults.
func NewMonitor(config ...MonitorConfig) *Monitor {
	cfg := MonitorConfig{Timeout: 10 * time.Second}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Monitor{
		config: cfg,
		checks: make(map[string]Checker),
	}
}

// Watch registers a checker under its own name. Watching a name again
// replaces the previous checker and keeps its position.
func (m *Monitor) Watch(check Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(check.Name(), check)
}

// WatchCircuits registers a CircuitChecker over the registry and keeps
// the registry for the report's circuit summary.
func (m *Monitor) WatchCircuits(registry *resilience.CircuitRegistry, config CircuitCheckerConfig) {
	check := NewCircuitChecker(registry, config)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = registry
	m.add(check.Name(), check)
}

// WatchLimiter registers a LimiterChecker over the limiter and keeps
// the limiter for the report's rate-limit summary.
func (m *Monitor) WatchLimiter(limiter *resilience.RateLimiter, config LimiterCheckerConfig) {
	check := NewLimiterChecker(limiter, config)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiter = limiter
	m.add(check.Name(), check)
}

func (m *Monitor) add(name string, check Checker) {
	if _, exists := m.checks[name]; !exists {
		m.order = append(m.order, name)
	}
	m.checks[name] = check
}

// Unwatch removes a checker by name.
func (m *Monitor) Unwatch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.checks[name]; !ok {
		return
	}
	delete(m.checks, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Names returns registered check names in registration order.
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Run executes a single named check. Unknown names return
// ErrUnknownCheck.
func (m *Monitor) Run(ctx context.Context, name string) (Result, error) {
	m.mu.RLock()
	check, ok := m.checks[name]
	m.mu.RUnlock()

	if !ok {
		return Result{}, ErrUnknownCheck
	}
	return m.runBounded(ctx, check), nil
}

// RunAll executes every registered check under the monitor's timeout
// and assembles the report.
func (m *Monitor) RunAll(ctx context.Context) Report {
	m.mu.RLock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	checks := make(map[string]Checker, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	registry, limiter := m.registry, m.limiter
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checks))
	if m.config.Sequential {
		for _, name := range names {
			results[name] = m.runBounded(ctx, checks[name])
		}
	} else {
		var wg sync.WaitGroup
		var resultsMu sync.Mutex
		for _, name := range names {
			wg.Add(1)
			go func(name string, check Checker) {
				defer wg.Done()
				result := m.runBounded(ctx, check)
				resultsMu.Lock()
				results[name] = result
				resultsMu.Unlock()
			}(name, checks[name])
		}
		wg.Wait()
	}

	report := Report{
		Status:      reduceStatus(results),
		Checks:      results,
		GeneratedAt: time.Now(),
	}
	if registry != nil {
		report.Circuits = summarizeCircuits(registry)
	}
	if limiter != nil {
		report.RateLimit = summarizeLimiter(limiter)
	}
	return report
}

// runBounded runs one check in its own goroutine so a stuck check
// cannot wedge the probe run past the context deadline.
func (m *Monitor) runBounded(ctx context.Context, check Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		result := check.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		done <- result
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		result := Unhealthy("check abandoned at deadline", ErrCheckTimeout)
		result.Duration = time.Since(start)
		result.Timestamp = start
		return result
	}
}

// Checker adapts the monitor into a single composite check, so one
// monitor can feed another probe surface.
func (m *Monitor) Checker() Checker {
	return NewCheckerFunc("engine", func(ctx context.Context) Result {
		report := m.RunAll(ctx)

		details := make(map[string]any, len(report.Checks))
		for name, result := range report.Checks {
			details[name] = result.Status.String()
		}
		if report.Circuits != nil {
			details["open_circuits"] = report.Circuits.Open
		}
		if report.RateLimit != nil {
			details["rejection_rate"] = report.RateLimit.RejectionRate
		}

		switch report.Status {
		case StatusUnhealthy:
			return Unhealthy("engine checks failing", ErrCheckFailed).WithDetails(details)
		case StatusDegraded:
			return Degraded("engine checks degraded").WithDetails(details)
		default:
			return Healthy("engine checks passing").WithDetails(details)
		}
	})
}

// reduceStatus folds per-check statuses: any unhealthy wins, then any
// degraded, else healthy.
func reduceStatus(results map[string]Result) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Report is the outcome of a full probe run.
type Report struct {
	// Status is the reduced status across all checks.
	Status Status

	// Checks holds per-check results keyed by check name.
	Checks map[string]Result

	// Circuits summarizes breaker states when a registry is watched.
	Circuits *CircuitSummary

	// RateLimit summarizes limiter pressure when a limiter is watched.
	RateLimit *LimiterSummary

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time
}

// CircuitSummary aggregates breaker states for a report.
type CircuitSummary struct {
	Open     int
	HalfOpen int
	Closed   int

	// States maps circuit name to its state string.
	States map[string]string
}

// LimiterSummary aggregates limiter counters for a report.
type LimiterSummary struct {
	Allowed       uint64
	Rejected      uint64
	RejectionRate float64
	TrackedKeys   int
}

func summarizeCircuits(registry *resilience.CircuitRegistry) *CircuitSummary {
	snapshots := registry.Snapshots()

	summary := &CircuitSummary{States: make(map[string]string, len(snapshots))}
	for name, snap := range snapshots {
		summary.States[name] = snap.State.String()
		switch snap.State {
		case resilience.StateOpen:
			summary.Open++
		case resilience.StateHalfOpen:
			summary.HalfOpen++
		default:
			summary.Closed++
		}
	}
	return summary
}

func summarizeLimiter(limiter *resilience.RateLimiter) *LimiterSummary {
	snap := limiter.Snapshot()

	summary := &LimiterSummary{
		Allowed:     snap.Allowed,
		Rejected:    snap.Rejected,
		TrackedKeys: snap.Keys,
	}
	if total := snap.Allowed + snap.Rejected; total > 0 {
		summary.RejectionRate = float64(snap.Rejected) / float64(total)
	}
	return summary
}
