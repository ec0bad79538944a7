package schedule

import "errors"

var (
	// ErrInvalidClockTime is returned for strings outside HH:MM 24h form.
	ErrInvalidClockTime = errors.New("schedule: invalid clock time")
	// ErrInvalidDailyWindow is returned when the daily window does not
	// start before it ends. Overnight wrap is not supported.
	ErrInvalidDailyWindow = errors.New("schedule: invalid daily window")
	// ErrInvalidWeekday is returned for weekday numbers outside 0..6.
	ErrInvalidWeekday = errors.New("schedule: invalid weekday")
	// ErrNilLocation is returned when constructing a calendar without a location.
	ErrNilLocation = errors.New("schedule: nil location")
	// ErrInvalidStamp is returned for unparseable local date-time stamps.
	ErrInvalidStamp = errors.New("schedule: invalid date-time stamp")
)
