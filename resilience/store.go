package resilience

import (
	"sync"
	"time"
)

// sweepEvery is how many store operations pass between idle-entry sweeps.
const sweepEvery = 1024

// bucketEntry is one key's admission state. Which fields are live
// depends on the limiter's algorithm.
type bucketEntry struct {
	// level is the remaining tokens (token bucket) or the queued depth
	// (leaky bucket).
	level float64

	// updated is when level was last recomputed from elapsed time.
	updated time.Time

	// arrivals is the time-ordered admission log (sliding window).
	arrivals []time.Time

	// lastSeen drives idle eviction.
	lastSeen time.Time
}

// limiterStore owns per-key bucket state. Key cardinality is bounded two
// ways: entries idle longer than idleTTL are swept lazily, and when the
// key count reaches maxKeys the least recently seen entries are evicted.
// The mutex is held only around map bookkeeping and the O(1) admission
// arithmetic, never across a wrapped operation.
type limiterStore struct {
	mu      sync.Mutex
	entries map[string]*bucketEntry

	idleTTL  time.Duration
	maxKeys  int
	ops      int
	newEntry func(now time.Time) *bucketEntry
}

func newLimiterStore(idleTTL time.Duration, maxKeys int, newEntry func(now time.Time) *bucketEntry) *limiterStore {
	return &limiterStore{
		entries:  make(map[string]*bucketEntry),
		idleTTL:  idleTTL,
		maxKeys:  maxKeys,
		newEntry: newEntry,
	}
}

// getLocked returns the entry for key, creating it on first sight. An
// entry that has sat idle past the TTL is treated as a miss and rebuilt,
// so a returning key starts from fresh state.
func (s *limiterStore) getLocked(key string, now time.Time) *bucketEntry {
	s.ops++
	if s.ops%sweepEvery == 0 {
		s.sweepLocked(now)
	}

	if entry, ok := s.entries[key]; ok {
		if now.Sub(entry.lastSeen) < s.idleTTL {
			return entry
		}
		delete(s.entries, key)
	}

	if len(s.entries) >= s.maxKeys {
		s.sweepLocked(now)
		for len(s.entries) >= s.maxKeys {
			s.evictOldestLocked()
		}
	}

	entry := s.newEntry(now)
	s.entries[key] = entry
	return entry
}

// sweepLocked drops every entry idle longer than the TTL.
func (s *limiterStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if now.Sub(entry.lastSeen) >= s.idleTTL {
			delete(s.entries, key)
		}
	}
}

// evictOldestLocked removes the least recently seen entry. Linear scan:
// it only runs once the store is at its key cap.
func (s *limiterStore) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, entry := range s.entries {
		if !found || entry.lastSeen.Before(oldest) {
			oldestKey = key
			oldest = entry.lastSeen
			found = true
		}
	}
	if found {
		delete(s.entries, oldestKey)
	}
}

func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
