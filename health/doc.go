// Package health exposes the state of resilience policies as health checks.
//
// A Checker reports a Status of Healthy, Degraded, or Unhealthy. The
// package ships checkers backed by circuit breaker registries and rate
// limiters, a Monitor that runs them and reduces the results into a
// Report with circuit and rate-limit summaries, and HTTP handlers for
// liveness and readiness probes.
//
// # Basic Usage
//
//	registry := resilience.NewCircuitRegistry(resilience.CircuitConfig{})
//	check := health.NewCircuitChecker(registry, health.CircuitCheckerConfig{})
//
//	result := check.Check(ctx)
//	if result.Status != health.StatusHealthy {
//	    log.Printf("circuits degraded: %s", result.Message)
//	}
//
// # Monitoring the Engine
//
//	monitor := health.NewMonitor()
//	monitor.WatchCircuits(registry, health.CircuitCheckerConfig{})
//	monitor.WatchLimiter(limiter, health.LimiterCheckerConfig{})
//
//	report := monitor.RunAll(ctx)
//	log.Printf("engine %s, %d circuits open", report.Status, report.Circuits.Open)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, monitor)
//
// /healthz answers liveness, /readyz gates readiness on the report's
// reduced status, and /health serves the full report as JSON.
package health
