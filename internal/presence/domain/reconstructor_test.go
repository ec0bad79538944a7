package presence

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"
)

type fakeEventSource struct {
	events []StatusEvent
	err    error
}

func (s *fakeEventSource) LatestBefore(_ context.Context, scopeID, subjectID string, before time.Time) (*StatusEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var found *StatusEvent
	for i := range s.events {
		event := s.events[i]
		if event.ScopeID != scopeID || event.SubjectID != subjectID {
			continue
		}
		if !event.At.Before(before) {
			continue
		}
		if found == nil || !event.At.Before(found.At) {
			found = &s.events[i]
		}
	}
	return found, nil
}

func (s *fakeEventSource) RangeInclusive(_ context.Context, scopeID, subjectID string, start, end time.Time) ([]StatusEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []StatusEvent
	for _, event := range s.events {
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

func at(t *testing.T, stamp string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		t.Fatalf("parse %q: %v", stamp, err)
	}
	return parsed
}

func event(t *testing.T, status Status, stamp string) StatusEvent {
	t.Helper()
	return StatusEvent{ScopeID: "guild-1", SubjectID: "user-1", Status: status, At: at(t, stamp)}
}

func TestDurations_PartitionProperty(t *testing.T) {
	source := &fakeEventSource{events: []StatusEvent{
		event(t, StatusOffline, "2025-08-11T11:00:00Z"),
		event(t, StatusOnline, "2025-08-11T12:15:00Z"),
		event(t, StatusIdle, "2025-08-11T13:00:00Z"),
		event(t, StatusOnline, "2025-08-11T14:30:00Z"),
	}}
	reconstructor, err := NewIntervalReconstructor(source)
	if err != nil {
		t.Fatalf("constructor error: %v", err)
	}

	start := at(t, "2025-08-11T11:00:00Z")
	end := at(t, "2025-08-11T21:00:00Z")
	tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-1", start, end)
	if err != nil {
		t.Fatalf("durations error: %v", err)
	}

	if got := tally.Seconds(StatusOffline); got != 4500 {
		t.Fatalf("expected offline 4500s, got %v", got)
	}
	if got := tally.Seconds(StatusOnline); got != 26100 {
		t.Fatalf("expected online 26100s, got %v", got)
	}
	if got := tally.Seconds(StatusIdle); got != 5400 {
		t.Fatalf("expected idle 5400s, got %v", got)
	}
	if got := tally.Seconds(StatusDnd); got != 0 {
		t.Fatalf("expected dnd 0s, got %v", got)
	}
	if diff := math.Abs(tally.Total() - end.Sub(start).Seconds()); diff > 1e-6 {
		t.Fatalf("partition violated: total %v, window %v", tally.Total(), end.Sub(start).Seconds())
	}
}

func TestDurations_NoEventsDefaultsToOffline(t *testing.T) {
	reconstructor, err := NewIntervalReconstructor(&fakeEventSource{})
	if err != nil {
		t.Fatalf("constructor error: %v", err)
	}

	start := at(t, "2025-08-11T08:00:00Z")
	end := at(t, "2025-08-11T18:00:00Z")
	tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-missing", start, end)
	if err != nil {
		t.Fatalf("durations error: %v", err)
	}
	if got := tally.Seconds(StatusOffline); got != 36000 {
		t.Fatalf("expected whole window offline, got %v", got)
	}
	if got := tally.Total(); got != 36000 {
		t.Fatalf("expected total 36000, got %v", got)
	}
}

func TestDurations_CarriedInStatus(t *testing.T) {
	source := &fakeEventSource{events: []StatusEvent{
		event(t, StatusDnd, "2025-08-10T23:00:00Z"),
	}}
	reconstructor, _ := NewIntervalReconstructor(source)

	start := at(t, "2025-08-11T08:00:00Z")
	end := at(t, "2025-08-11T09:00:00Z")
	tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-1", start, end)
	if err != nil {
		t.Fatalf("durations error: %v", err)
	}
	if got := tally.Seconds(StatusDnd); got != 3600 {
		t.Fatalf("expected carried-in dnd for the whole window, got %v", got)
	}
}

func TestDurations_DuplicateEventsAreIdempotent(t *testing.T) {
	base := []StatusEvent{
		event(t, StatusOnline, "2025-08-11T09:00:00Z"),
		event(t, StatusIdle, "2025-08-11T10:00:00Z"),
	}
	duplicated := append(append([]StatusEvent{}, base...), event(t, StatusIdle, "2025-08-11T10:00:00Z"))

	start := at(t, "2025-08-11T08:00:00Z")
	end := at(t, "2025-08-11T12:00:00Z")

	run := func(events []StatusEvent) DurationTally {
		reconstructor, _ := NewIntervalReconstructor(&fakeEventSource{events: events})
		tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-1", start, end)
		if err != nil {
			t.Fatalf("durations error: %v", err)
		}
		return tally
	}

	plain := run(base)
	doubled := run(duplicated)
	for _, status := range AllStatuses() {
		if plain.Seconds(status) != doubled.Seconds(status) {
			t.Fatalf("duplicate changed tally for %s: %v vs %v", status, plain.Seconds(status), doubled.Seconds(status))
		}
	}
}

func TestDurations_InvertedWindowYieldsZero(t *testing.T) {
	reconstructor, _ := NewIntervalReconstructor(&fakeEventSource{events: []StatusEvent{
		event(t, StatusOnline, "2025-08-11T09:00:00Z"),
	}})

	tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-1",
		at(t, "2025-08-11T18:00:00Z"), at(t, "2025-08-11T08:00:00Z"))
	if err != nil {
		t.Fatalf("durations error: %v", err)
	}
	if got := tally.Total(); got != 0 {
		t.Fatalf("expected all-zero tally, got total %v", got)
	}
}

func TestDurations_EventAtWindowEndContributesNothing(t *testing.T) {
	source := &fakeEventSource{events: []StatusEvent{
		event(t, StatusOnline, "2025-08-11T08:00:00Z"),
		event(t, StatusIdle, "2025-08-11T10:00:00Z"),
	}}
	reconstructor, _ := NewIntervalReconstructor(source)

	tally, err := reconstructor.Durations(context.Background(), "guild-1", "user-1",
		at(t, "2025-08-11T08:00:00Z"), at(t, "2025-08-11T10:00:00Z"))
	if err != nil {
		t.Fatalf("durations error: %v", err)
	}
	if got := tally.Seconds(StatusOnline); got != 7200 {
		t.Fatalf("expected online 7200s, got %v", got)
	}
	if got := tally.Seconds(StatusIdle); got != 0 {
		t.Fatalf("expected idle 0s, got %v", got)
	}
}

func TestDurations_ReadErrorPropagates(t *testing.T) {
	readErr := errors.New("log unavailable")
	reconstructor, _ := NewIntervalReconstructor(&fakeEventSource{err: readErr})

	_, err := reconstructor.Durations(context.Background(), "guild-1", "user-1",
		at(t, "2025-08-11T08:00:00Z"), at(t, "2025-08-11T18:00:00Z"))
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error to propagate, got %v", err)
	}
}

type halfOverlap struct{}

func (halfOverlap) OverlapSeconds(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Seconds() / 2
}

func TestDurationsFiltered_BoundedByOverlap(t *testing.T) {
	source := &fakeEventSource{events: []StatusEvent{
		event(t, StatusOnline, "2025-08-11T09:00:00Z"),
		event(t, StatusIdle, "2025-08-11T12:00:00Z"),
	}}
	reconstructor, _ := NewIntervalReconstructor(source)

	start := at(t, "2025-08-11T08:00:00Z")
	end := at(t, "2025-08-11T18:00:00Z")
	tally, err := reconstructor.DurationsFiltered(context.Background(), "guild-1", "user-1", start, end, halfOverlap{})
	if err != nil {
		t.Fatalf("filtered durations error: %v", err)
	}
	limit := halfOverlap{}.OverlapSeconds(start, end)
	if tally.Total() > limit+1e-6 {
		t.Fatalf("filtered total %v exceeds overlap %v", tally.Total(), limit)
	}
}

func TestDurationsFiltered_NilCalendar(t *testing.T) {
	reconstructor, _ := NewIntervalReconstructor(&fakeEventSource{})
	_, err := reconstructor.DurationsFiltered(context.Background(), "g", "u", time.Now(), time.Now(), nil)
	if !errors.Is(err, ErrNilCalendar) {
		t.Fatalf("expected ErrNilCalendar, got %v", err)
	}
}
