package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Per-request deadlines for the probe endpoints. The monitor's own
// timeout still applies inside these.
const (
	readinessDeadline = 5 * time.Second
	statusDeadline    = 10 * time.Second
)

type checkPayload struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type circuitsPayload struct {
	Open     int               `json:"open"`
	HalfOpen int               `json:"half_open"`
	Closed   int               `json:"closed"`
	States   map[string]string `json:"states,omitempty"`
}

type limiterPayload struct {
	Allowed       uint64  `json:"allowed"`
	Rejected      uint64  `json:"rejected"`
	RejectionRate float64 `json:"rejection_rate"`
	TrackedKeys   int     `json:"tracked_keys"`
}

type statusPayload struct {
	Status      string                  `json:"status"`
	GeneratedAt string                  `json:"generated_at"`
	Circuits    *circuitsPayload        `json:"circuits,omitempty"`
	RateLimit   *limiterPayload         `json:"ratelimit,omitempty"`
	Checks      map[string]checkPayload `json:"checks,omitempty"`
}

// LivenessHandler reports that the process is up. It never consults
// the monitor: a wedged engine should fail readiness, not liveness.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessHandler runs all checks and answers 200 while the engine is
// healthy or degraded, 503 once any check is unhealthy. Degraded keeps
// serving: an open circuit sheds load but the process is still useful.
func ReadinessHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessDeadline)
		defer cancel()

		report := m.RunAll(ctx)

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"status": report.Status.String()})
	}
}

// StatusHandler serves the full report as JSON, including the circuit
// and rate-limit summaries when those guards are watched.
func StatusHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), statusDeadline)
		defer cancel()

		report := m.RunAll(ctx)

		body := statusPayload{
			Status:      report.Status.String(),
			GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
			Checks:      make(map[string]checkPayload, len(report.Checks)),
		}
		if report.Circuits != nil {
			body.Circuits = &circuitsPayload{
				Open:     report.Circuits.Open,
				HalfOpen: report.Circuits.HalfOpen,
				Closed:   report.Circuits.Closed,
				States:   report.Circuits.States,
			}
		}
		if report.RateLimit != nil {
			body.RateLimit = &limiterPayload{
				Allowed:       report.RateLimit.Allowed,
				Rejected:      report.RateLimit.Rejected,
				RejectionRate: report.RateLimit.RejectionRate,
				TrackedKeys:   report.RateLimit.TrackedKeys,
			}
		}
		for name, result := range report.Checks {
			body.Checks[name] = toCheckPayload(result)
		}

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, body)
	}
}

// CheckHandler serves one named check; unknown names answer 404.
func CheckHandler(m *Monitor, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessDeadline)
		defer cancel()

		result, err := m.Run(ctx, name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}

		code := http.StatusOK
		if result.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, toCheckPayload(result))
	}
}

// RegisterHandlers mounts the probe endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, m *Monitor) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(m))
	mux.HandleFunc("/health", StatusHandler(m))
}

func toCheckPayload(result Result) checkPayload {
	payload := checkPayload{
		Status:   result.Status.String(),
		Message:  result.Message,
		Duration: result.Duration.String(),
		Details:  result.Details,
	}
	if result.Error != nil {
		payload.Error = result.Error.Error()
	}
	return payload
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
