package consumer

import (
	"context"
	"sync"
	"time"
)

// ActivityTracker remembers the last observed activity per subject so idle
// transitions can be classified as manual (the subject was active moments
// before) or automatic. Entries older than the TTL are evicted by Sweep.
type ActivityTracker struct {
	mu        sync.Mutex
	lastSeen  map[activityKey]time.Time
	threshold time.Duration
	ttl       time.Duration
}

type activityKey struct {
	scopeID   string
	subjectID string
}

// NewActivityTracker constructs a tracker. A non-positive threshold defaults
// to one minute, a non-positive ttl to thirty minutes.
func NewActivityTracker(threshold, ttl time.Duration) *ActivityTracker {
	if threshold <= 0 {
		threshold = time.Minute
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ActivityTracker{
		lastSeen:  make(map[activityKey]time.Time),
		threshold: threshold,
		ttl:       ttl,
	}
}

// Touch records activity for a subject at the given instant. Older instants
// never overwrite newer ones.
func (t *ActivityTracker) Touch(scopeID, subjectID string, at time.Time) {
	key := activityKey{scopeID: scopeID, subjectID: subjectID}
	t.mu.Lock()
	if existing, ok := t.lastSeen[key]; !ok || at.After(existing) {
		t.lastSeen[key] = at
	}
	t.mu.Unlock()
}

// ActiveWithin reports whether the subject was active within the threshold
// before the given instant.
func (t *ActivityTracker) ActiveWithin(scopeID, subjectID string, at time.Time) bool {
	key := activityKey{scopeID: scopeID, subjectID: subjectID}
	t.mu.Lock()
	seen, ok := t.lastSeen[key]
	t.mu.Unlock()
	if !ok {
		return false
	}
	elapsed := at.Sub(seen)
	return elapsed >= 0 && elapsed <= t.threshold
}

// Len reports the number of tracked subjects.
func (t *ActivityTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Evict drops entries last seen before now minus the TTL and reports how many
// were removed.
func (t *ActivityTracker) Evict(now time.Time) int {
	cutoff := now.Add(-t.ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, seen := range t.lastSeen {
		if seen.Before(cutoff) {
			delete(t.lastSeen, key)
			removed++
		}
	}
	return removed
}

// Sweep evicts expired entries periodically until ctx cancellation.
func (t *ActivityTracker) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = t.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Evict(now)
		}
	}
}
