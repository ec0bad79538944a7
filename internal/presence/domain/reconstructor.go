package presence

import (
	"context"
	"time"
)

// Overlapper reports how many seconds of a UTC interval fall inside a
// recurring business calendar.
type Overlapper interface {
	OverlapSeconds(startUTC, endUTC time.Time) float64
}

// IntervalReconstructor folds the sparse presence log into a dense,
// gap-free partition of a window and tallies seconds per status.
type IntervalReconstructor struct {
	source EventSource
}

// NewIntervalReconstructor constructs a reconstructor over an event source.
func NewIntervalReconstructor(source EventSource) (*IntervalReconstructor, error) {
	if source == nil {
		return nil, ErrNilEventSource
	}
	return &IntervalReconstructor{source: source}, nil
}

// Durations reconstructs [start, end) and returns raw seconds per status.
// The spans attributed across statuses exactly partition the window.
// A subject with no events yields the whole window as offline; an inverted
// window yields an all-zero tally. Read errors propagate unchanged.
func (r *IntervalReconstructor) Durations(ctx context.Context, scopeID, subjectID string, start, end time.Time) (DurationTally, error) {
	return r.fold(ctx, scopeID, subjectID, start, end, nil)
}

// DurationsFiltered is Durations with every span passed through the
// calendar overlap, so only business time is counted.
func (r *IntervalReconstructor) DurationsFiltered(ctx context.Context, scopeID, subjectID string, start, end time.Time, calendar Overlapper) (DurationTally, error) {
	if calendar == nil {
		return nil, ErrNilCalendar
	}
	return r.fold(ctx, scopeID, subjectID, start, end, calendar)
}

func (r *IntervalReconstructor) fold(ctx context.Context, scopeID, subjectID string, start, end time.Time, calendar Overlapper) (DurationTally, error) {
	tally := NewDurationTally()
	if !end.After(start) {
		return tally, nil
	}

	current := DefaultStatus
	carried, err := r.source.LatestBefore(ctx, scopeID, subjectID, start)
	if err != nil {
		return nil, err
	}
	if carried != nil {
		current = carried.Status
	}

	events, err := r.source.RangeInclusive(ctx, scopeID, subjectID, start, end)
	if err != nil {
		return nil, err
	}

	cursor := start
	for _, event := range events {
		// Duplicates and ties sit at or before the cursor: they change
		// the current status but never produce a negative span.
		if event.At.After(cursor) {
			tally.Add(current, span(cursor, event.At, calendar))
			cursor = event.At
		}
		current = event.Status
	}
	if end.After(cursor) {
		tally.Add(current, span(cursor, end, calendar))
	}
	return tally, nil
}

func span(from, to time.Time, calendar Overlapper) float64 {
	if calendar != nil {
		return calendar.OverlapSeconds(from, to)
	}
	return to.Sub(from).Seconds()
}
