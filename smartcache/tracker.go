package smartcache

import (
	"sync"
	"time"
)

// AccessStats describes the observed access pattern for one cache key.
type AccessStats struct {
	Count           int64
	LastAccess      time.Time
	AverageInterval time.Duration
}

// AccessTracker records per-key access frequency so the cache can adapt
// TTLs to how hot a key actually is.
type AccessTracker struct {
	mu      sync.Mutex
	entries map[string]*AccessStats
	now     func() time.Time
}

// NewAccessTracker creates an empty tracker.
func NewAccessTracker() *AccessTracker {
	return &AccessTracker{
		entries: make(map[string]*AccessStats),
		now:     time.Now,
	}
}

// Record notes an access to key and updates its running average interval.
func (t *AccessTracker) Record(key string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.entries[key]
	if !ok {
		t.entries[key] = &AccessStats{Count: 1, LastAccess: now}
		return
	}

	interval := now.Sub(stats.LastAccess)
	stats.Count++
	stats.LastAccess = now
	if stats.AverageInterval == 0 {
		stats.AverageInterval = interval
	} else {
		// Running average over the observed intervals.
		n := stats.Count - 1
		stats.AverageInterval += (interval - stats.AverageInterval) / time.Duration(n)
	}
}

// Stats returns a copy of the stats for key, if any accesses were recorded.
func (t *AccessTracker) Stats(key string) (AccessStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.entries[key]
	if !ok {
		return AccessStats{}, false
	}
	return *stats, true
}

// Forget drops tracking state for key.
func (t *AccessTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Len returns the number of tracked keys.
func (t *AccessTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
