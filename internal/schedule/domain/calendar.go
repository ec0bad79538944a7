package schedule

import (
	"sort"
	"time"
)

// Weekday numbering follows the event stream convention: 0=Monday .. 6=Sunday.

// BusinessCalendar describes which weekdays count as business days and the
// daily clock-time sub-window, in a resolved location. Immutable after
// construction.
type BusinessCalendar struct {
	weekdays map[int]bool
	dayStart ClockTime
	dayEnd   ClockTime
	location *time.Location
	nextDay  func(time.Time) time.Time
}

// NewBusinessCalendar validates and builds a calendar.
func NewBusinessCalendar(weekdays []int, dayStart, dayEnd ClockTime, location *time.Location) (*BusinessCalendar, error) {
	if location == nil {
		return nil, ErrNilLocation
	}
	if !dayStart.Before(dayEnd) {
		return nil, ErrInvalidDailyWindow
	}
	set := make(map[int]bool, len(weekdays))
	for _, weekday := range weekdays {
		if weekday < 0 || weekday > 6 {
			return nil, ErrInvalidWeekday
		}
		set[weekday] = true
	}
	return &BusinessCalendar{
		weekdays: set,
		dayStart: dayStart,
		dayEnd:   dayEnd,
		location: location,
		nextDay: func(cursor time.Time) time.Time {
			year, month, day := cursor.Date()
			return time.Date(year, month, day+1, 0, 0, 0, 0, location)
		},
	}, nil
}

// Location returns the calendar location.
func (c *BusinessCalendar) Location() *time.Location { return c.location }

// DayStart returns the daily window start.
func (c *BusinessCalendar) DayStart() ClockTime { return c.dayStart }

// DayEnd returns the daily window end.
func (c *BusinessCalendar) DayEnd() ClockTime { return c.dayEnd }

// Weekdays returns the business weekdays in ascending order.
func (c *BusinessCalendar) Weekdays() []int {
	out := make([]int, 0, len(c.weekdays))
	for weekday := range c.weekdays {
		out = append(out, weekday)
	}
	sort.Ints(out)
	return out
}

// IsBusinessDay reports whether the local calendar day of d is a business day.
func (c *BusinessCalendar) IsBusinessDay(d time.Time) bool {
	return c.weekdays[mondayIndex(d.In(c.location).Weekday())]
}

// OverlapSeconds returns how many seconds of [startUTC, endUTC] fall inside
// business weekdays and the daily window, walking local calendar days.
//
// Boundaries are built with local wall-clock times, so daylight-saving
// shifts are handled by the zone conversion: a boundary inside a
// spring-forward gap normalizes forward (the gap has zero width) and a
// fall-back duplicate hour is counted once.
func (c *BusinessCalendar) OverlapSeconds(startUTC, endUTC time.Time) float64 {
	if !endUTC.After(startUTC) {
		return 0
	}

	startLocal := startUTC.In(c.location)
	endLocal := endUTC.In(c.location)

	var total float64
	cursor := startLocal
	for cursor.Before(endLocal) {
		if c.weekdays[mondayIndex(cursor.Weekday())] {
			from := maxTime(cursor, c.dayStart.On(cursor, c.location))
			to := minTime(endLocal, c.dayEnd.On(cursor, c.location))
			if to.After(from) {
				total += to.Sub(from).Seconds()
			}
		}

		next := c.nextDay(cursor)
		// A malformed zone must never stall the walk.
		if !next.After(cursor) {
			next = cursor.Add(24 * time.Hour)
		}
		cursor = next
	}
	return total
}

func mondayIndex(weekday time.Weekday) int {
	return (int(weekday) + 6) % 7
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
