package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a minute-resolution time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses an "HH:MM" 24-hour string. Surrounding whitespace
// and quotes are tolerated.
func ParseClockTime(raw string) (ClockTime, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, ErrInvalidClockTime
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ClockTime{}, ErrInvalidClockTime
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ClockTime{}, ErrInvalidClockTime
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, ErrInvalidClockTime
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Before reports whether c precedes other within a day.
func (c ClockTime) Before(other ClockTime) bool {
	return c.Hour*60+c.Minute < other.Hour*60+other.Minute
}

// On anchors the clock time on the calendar day of d in the given location.
func (c ClockTime) On(d time.Time, location *time.Location) time.Time {
	year, month, day := d.Date()
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, location)
}

// String renders the canonical "HH:MM" form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
