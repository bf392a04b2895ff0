package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCircuitRegistry_GetOrCreate(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{MinRequests: 5})

	a := r.GetOrCreate("billing")
	b := r.GetOrCreate("billing")

	if a != b {
		t.Error("GetOrCreate returned distinct breakers for the same name")
	}
	if a.Name() != "billing" {
		t.Errorf("Name() = %q, want %q", a.Name(), "billing")
	}
	if a.config.MinRequests != 5 {
		t.Errorf("MinRequests = %d, want registry default 5", a.config.MinRequests)
	}
}

func TestCircuitRegistry_Get(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{})

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) = ok, want miss")
	}

	created := r.GetOrCreate("search")
	got, ok := r.Get("search")
	if !ok || got != created {
		t.Error("Get(search) did not return the created breaker")
	}
}

func TestCircuitRegistry_ConcurrentGetOrCreate(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{})

	var wg sync.WaitGroup
	breakers := make([]*CircuitBreaker, 100)

	for i := range breakers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			breakers[i] = r.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i, cb := range breakers {
		if cb != breakers[0] {
			t.Fatalf("Goroutine %d got a different breaker instance", i)
		}
	}
	if got := len(r.Names()); got != 1 {
		t.Errorf("Names() length = %d, want 1", got)
	}
}

func TestCircuitRegistry_Names(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{})
	r.GetOrCreate("a")
	r.GetOrCreate("b")

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
	seen := map[string]bool{}
	for _, name := range names {
		seen[name] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Names() = %v, want a and b", names)
	}
}

func TestCircuitRegistry_Snapshots(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{ErrorThreshold: 0.5, MinRequests: 2, OpenDuration: time.Hour})

	cb := r.GetOrCreate("flaky")
	testErr := errors.New("down")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })

	snapshots := r.Snapshots()
	snap, ok := snapshots["flaky"]
	if !ok {
		t.Fatal("Snapshots() missing entry for flaky")
	}
	if snap.State != StateOpen {
		t.Errorf("Snapshot state = %v, want open", snap.State)
	}
	if snap.Failures != 2 {
		t.Errorf("Snapshot failures = %d, want 2", snap.Failures)
	}
}

func TestCircuitRegistry_ResetAll(t *testing.T) {
	r := NewCircuitRegistry(CircuitConfig{ErrorThreshold: 0.5, MinRequests: 1, OpenDuration: time.Hour})

	cb := r.GetOrCreate("flaky")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	r.ResetAll()

	if cb.State() != StateClosed {
		t.Errorf("State after ResetAll = %v, want closed", cb.State())
	}
}
