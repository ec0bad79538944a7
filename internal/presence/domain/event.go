package presence

import (
	"context"
	"time"
)

// StatusEvent is one append-only row of the presence log. Rows are never
// mutated or deleted; ordering is by timestamp, then insertion order.
type StatusEvent struct {
	ScopeID     string
	SubjectID   string
	DisplayName string
	Status      Status
	Manual      bool
	At          time.Time
}

// Validate checks the required fields of an event.
func (e StatusEvent) Validate() error {
	if e.ScopeID == "" || e.SubjectID == "" || e.At.IsZero() || !e.Status.Valid() {
		return ErrInvalidEvent
	}
	return nil
}

// EventSource reads the presence log.
type EventSource interface {
	// LatestBefore returns the newest event strictly before the given
	// instant, or nil when the subject has no earlier events.
	LatestBefore(ctx context.Context, scopeID, subjectID string, before time.Time) (*StatusEvent, error)
	// RangeInclusive returns events with start <= ts <= end, ordered by
	// timestamp ascending with insertion order breaking ties.
	RangeInclusive(ctx context.Context, scopeID, subjectID string, start, end time.Time) ([]StatusEvent, error)
}

// EventSink appends to the presence log. Duplicates are tolerated; the
// reconstruction fold treats them as zero-width spans.
type EventSink interface {
	Append(ctx context.Context, event StatusEvent) error
}
