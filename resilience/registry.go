package resilience

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// CircuitRegistry owns the circuit breakers of a process, keyed by name.
//
// A registry is constructed once by the composition root and handed to
// call sites; there is no ambient global registry. Breakers are shared:
// every caller asking for the same name gets the same *CircuitBreaker.
type CircuitRegistry struct {
	defaults CircuitConfig

	mu       sync.RWMutex
	circuits map[string]*CircuitBreaker
	group    singleflight.Group
}

// NewCircuitRegistry creates a registry. New circuits are created with
// the given defaults.
func NewCircuitRegistry(defaults CircuitConfig) *CircuitRegistry {
	return &CircuitRegistry{
		defaults: defaults,
		circuits: make(map[string]*CircuitBreaker),
	}
}

// Get returns the named circuit if it exists.
func (r *CircuitRegistry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.circuits[name]
	return cb, ok
}

// GetOrCreate returns the named circuit, creating it with the registry
// defaults on first use. Concurrent first callers are collapsed through
// singleflight so exactly one breaker is constructed per name.
func (r *CircuitRegistry) GetOrCreate(name string) *CircuitBreaker {
	if cb, ok := r.Get(name); ok {
		return cb
	}

	v, _, _ := r.group.Do(name, func() (any, error) {
		// Re-check under the write path: a previous flight may have
		// stored the breaker after our read miss.
		r.mu.Lock()
		defer r.mu.Unlock()
		if cb, ok := r.circuits[name]; ok {
			return cb, nil
		}
		cb := NewCircuitBreaker(name, r.defaults)
		r.circuits[name] = cb
		return cb, nil
	})

	return v.(*CircuitBreaker)
}

// Names returns the names of all registered circuits.
func (r *CircuitRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.circuits))
	for name := range r.circuits {
		names = append(names, name)
	}
	return names
}

// Snapshots returns a counter snapshot per registered circuit.
func (r *CircuitRegistry) Snapshots() map[string]CounterSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make(map[string]CounterSnapshot, len(r.circuits))
	for name, cb := range r.circuits {
		snapshots[name] = cb.Metrics()
	}
	return snapshots
}

// ResetAll resets every registered circuit to closed.
func (r *CircuitRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cb := range r.circuits {
		cb.Reset()
	}
}
