package application

import (
	"context"
	"errors"
	"time"

	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
	schedule "presence-ledger/internal/schedule/domain"
)

var (
	// ErrNilReader is returned when constructing without a duration reader.
	ErrNilReader = errors.New("report: nil duration reader")
	// ErrNilCalendar is returned when constructing without a calendar.
	ErrNilCalendar = errors.New("report: nil calendar")
)

// DurationReader reconstructs per-status durations for one window.
type DurationReader interface {
	Durations(ctx context.Context, scopeID, subjectID string, start, end time.Time) (presence.DurationTally, error)
	DurationsFiltered(ctx context.Context, scopeID, subjectID string, start, end time.Time, calendar presence.Overlapper) (presence.DurationTally, error)
}

// AggregateOptions select filtering and the active subset for a run.
type AggregateOptions struct {
	// CalendarFiltered restricts every span to business hours.
	CalendarFiltered bool
	// Mode selects the statuses counted as active.
	Mode presence.ActiveMode
}

// WindowResult is the outcome for one resolved window.
type WindowResult struct {
	Window        schedule.Window
	Skipped       bool
	Tally         presence.DurationTally
	ActiveSeconds float64
}

// Aggregation sums per-window outcomes across a multi-day run.
type Aggregation struct {
	Windows       []WindowResult
	Total         presence.DurationTally
	ActiveSeconds float64
}

// MeetsMinimum reports whether total active time reached the threshold.
func (a Aggregation) MeetsMinimum(minimum time.Duration) bool {
	return a.ActiveSeconds >= minimum.Seconds()
}

// WindowAggregator runs the reconstructor across resolved windows. Windows
// whose local date falls outside the business weekdays are recorded as
// skipped instead of computed — whole non-business days stay out of
// multi-day reports even before intra-day filtering.
type WindowAggregator struct {
	reader   DurationReader
	calendar *schedule.BusinessCalendar
}

// NewWindowAggregator constructs an aggregator.
func NewWindowAggregator(reader DurationReader, calendar *schedule.BusinessCalendar) (*WindowAggregator, error) {
	if reader == nil {
		return nil, ErrNilReader
	}
	if calendar == nil {
		return nil, ErrNilCalendar
	}
	return &WindowAggregator{reader: reader, calendar: calendar}, nil
}

// Aggregate reconstructs every window and sums the tallies.
func (a *WindowAggregator) Aggregate(ctx context.Context, scopeID, subjectID string, windows []schedule.Window, opts AggregateOptions) (Aggregation, error) {
	aggregation := Aggregation{Total: presence.NewDurationTally()}

	for _, window := range windows {
		result := WindowResult{Window: window}
		if !a.calendar.IsBusinessDay(window.LocalDate) {
			result.Skipped = true
			aggregation.Windows = append(aggregation.Windows, result)
			continue
		}

		tally, err := a.reconstruct(ctx, scopeID, subjectID, window, opts)
		if err != nil {
			return Aggregation{}, err
		}

		result.Tally = tally
		result.ActiveSeconds = tally.Active(opts.Mode)
		aggregation.ActiveSeconds += result.ActiveSeconds
		aggregation.Total.Merge(tally)
		aggregation.Windows = append(aggregation.Windows, result)
	}
	return aggregation, nil
}

// AggregateOne is Aggregate for a single explicit window with no day-level
// weekday skip, used by free-form window queries.
func (a *WindowAggregator) AggregateOne(ctx context.Context, scopeID, subjectID string, window schedule.Window, opts AggregateOptions) (WindowResult, error) {
	tally, err := a.reconstruct(ctx, scopeID, subjectID, window, opts)
	if err != nil {
		return WindowResult{}, err
	}
	return WindowResult{
		Window:        window,
		Tally:         tally,
		ActiveSeconds: tally.Active(opts.Mode),
	}, nil
}

func (a *WindowAggregator) reconstruct(ctx context.Context, scopeID, subjectID string, window schedule.Window, opts AggregateOptions) (presence.DurationTally, error) {
	started := time.Now()
	var tally presence.DurationTally
	var err error
	if opts.CalendarFiltered {
		tally, err = a.reader.DurationsFiltered(ctx, scopeID, subjectID, window.Start, window.End, a.calendar)
	} else {
		tally, err = a.reader.Durations(ctx, scopeID, subjectID, window.Start, window.End)
	}
	if err != nil {
		return nil, err
	}
	metrics.ObserveReconstruction(opts.CalendarFiltered, time.Since(started))
	return tally, nil
}
