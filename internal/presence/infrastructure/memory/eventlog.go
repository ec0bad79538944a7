package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	presence "presence-ledger/internal/presence/domain"
)

// EventLog is an in-memory presence log. Used by unit tests and local runs
// without a database. Append order stands in for the serial key when
// timestamps tie.
type EventLog struct {
	mu     sync.RWMutex
	events []presence.StatusEvent
}

// NewEventLog constructs an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records one status event.
func (l *EventLog) Append(_ context.Context, event presence.StatusEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return nil
}

// AppendBatch records a batch of status events.
func (l *EventLog) AppendBatch(ctx context.Context, events []presence.StatusEvent) error {
	for _, event := range events {
		if err := l.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// LatestBefore returns the newest event strictly before the given instant.
func (l *EventLog) LatestBefore(_ context.Context, scopeID, subjectID string, before time.Time) (*presence.StatusEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var found *presence.StatusEvent
	for i := range l.events {
		event := l.events[i]
		if event.ScopeID != scopeID || event.SubjectID != subjectID {
			continue
		}
		if !event.At.Before(before) {
			continue
		}
		// Later append wins on a timestamp tie.
		if found == nil || !event.At.Before(found.At) {
			copied := event
			found = &copied
		}
	}
	return found, nil
}

// RangeInclusive returns events with start <= ts <= end, oldest first.
func (l *EventLog) RangeInclusive(_ context.Context, scopeID, subjectID string, start, end time.Time) ([]presence.StatusEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []presence.StatusEvent
	for _, event := range l.events {
		if event.ScopeID != scopeID || event.SubjectID != subjectID {
			continue
		}
		if event.At.Before(start) || event.At.After(end) {
			continue
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// LatestEvent returns the newest event for a subject, or nil.
func (l *EventLog) LatestEvent(_ context.Context, scopeID, subjectID string) (*presence.StatusEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var found *presence.StatusEvent
	for i := range l.events {
		event := l.events[i]
		if event.ScopeID != scopeID || event.SubjectID != subjectID {
			continue
		}
		if found == nil || !event.At.Before(found.At) {
			copied := event
			found = &copied
		}
	}
	return found, nil
}

// LatestWithStatus returns the newest event holding the given status, or nil.
func (l *EventLog) LatestWithStatus(_ context.Context, scopeID, subjectID string, status presence.Status) (*presence.StatusEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var found *presence.StatusEvent
	for i := range l.events {
		event := l.events[i]
		if event.ScopeID != scopeID || event.SubjectID != subjectID || event.Status != status {
			continue
		}
		if found == nil || !event.At.Before(found.At) {
			copied := event
			found = &copied
		}
	}
	return found, nil
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
