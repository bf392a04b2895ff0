package resilience

import (
	"fmt"
	"testing"
	"time"
)

func TestLimiterStore_MaxKeysEviction(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{
		Algorithm: AlgorithmTokenBucket,
		Capacity:  1,
		Rate:      0.000001,
		MaxKeys:   3,
		Clock:     clock,
	})

	// Touch keys with distinct last-seen times.
	for i := 0; i < 3; i++ {
		rl.Check(fmt.Sprintf("key-%d", i))
		clock.Advance(time.Second)
	}
	if rl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rl.Len())
	}

	// A fourth key evicts the least recently seen, keeping the cap.
	rl.Check("key-3")
	if rl.Len() != 3 {
		t.Errorf("Len() after cap eviction = %d, want 3", rl.Len())
	}

	// key-0 was evicted: it comes back with a fresh full bucket.
	if _, ok := rl.Check("key-0"); !ok {
		t.Error("Check(key-0) rejected, want fresh state after eviction")
	}

	// key-2 survived: its bucket is still drained.
	if _, ok := rl.Check("key-2"); ok {
		t.Error("Check(key-2) = ok, want drained surviving state")
	}
}

func TestLimiterStore_IdleTTL(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{
		Algorithm:   AlgorithmSlidingWindow,
		Window:      time.Hour,
		MaxRequests: 1,
		IdleTTL:     time.Minute,
		Clock:       clock,
	})

	if _, ok := rl.Check("client"); !ok {
		t.Fatal("First Check() rejected")
	}
	if _, ok := rl.Check("client"); ok {
		t.Fatal("Second Check() = ok, want window full")
	}

	// After sitting idle past the TTL the key's state is discarded, even
	// though the hour-long window has not elapsed.
	clock.Advance(2 * time.Minute)
	if _, ok := rl.Check("client"); !ok {
		t.Error("Check() after idle TTL = rejected, want fresh state")
	}
}

func TestLimiterStore_PeriodicSweep(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{
		Algorithm: AlgorithmTokenBucket,
		Capacity:  1,
		Rate:      0.000001,
		IdleTTL:   time.Minute,
		Clock:     clock,
	})

	for i := 0; i < 100; i++ {
		rl.Check(fmt.Sprintf("stale-%d", i))
	}
	clock.Advance(2 * time.Minute)

	// Enough fresh traffic to cross the sweep cadence drops every stale key.
	for i := 0; i < sweepEvery+1; i++ {
		rl.Check("fresh")
	}

	if got := rl.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
}
