package schedule

import (
	"regexp"
	"strings"
	"time"
)

// Window is a concrete [Start, End) UTC interval. LocalDate is midnight of
// the local calendar day the window represents, used for display and
// day-level filtering only.
type Window struct {
	Start     time.Time
	End       time.Time
	LocalDate time.Time
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Resolver turns human date tokens into concrete windows in a location.
type Resolver struct {
	location *time.Location
	clock    Clock
}

// NewResolver constructs a resolver. A nil clock uses the system clock.
func NewResolver(location *time.Location, clock Clock) (*Resolver, error) {
	if location == nil {
		return nil, ErrNilLocation
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Resolver{location: location, clock: clock}, nil
}

// Resolve expands a date token into one window per local day, bounded by
// dayStart/dayEnd on each date. Recognized tokens: "today"/"hoje",
// "yesterday"/"ontem", "YYYY-MM-DD" and "YYYY-MM-DD..YYYY-MM-DD" (reversed
// endpoints are swapped). Anything else falls back to today — resolution
// never hard-fails.
func (r *Resolver) Resolve(token string, dayStart, dayEnd ClockTime) []Window {
	token = strings.ToLower(strings.TrimSpace(token))
	now := r.clock.Now().In(r.location)

	switch token {
	case "", "hoje", "today":
		return []Window{r.dayWindow(now, dayStart, dayEnd)}
	case "ontem", "yesterday":
		return []Window{r.dayWindow(now.AddDate(0, 0, -1), dayStart, dayEnd)}
	}

	if datePattern.MatchString(token) {
		if day, err := time.ParseInLocation(dateLayout, token, r.location); err == nil {
			return []Window{r.dayWindow(day, dayStart, dayEnd)}
		}
		return []Window{r.dayWindow(now, dayStart, dayEnd)}
	}

	if first, second, ok := strings.Cut(token, ".."); ok {
		from, errFrom := time.ParseInLocation(dateLayout, strings.TrimSpace(first), r.location)
		to, errTo := time.ParseInLocation(dateLayout, strings.TrimSpace(second), r.location)
		if errFrom == nil && errTo == nil {
			if to.Before(from) {
				from, to = to, from
			}
			var windows []Window
			for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
				windows = append(windows, r.dayWindow(day, dayStart, dayEnd))
			}
			return windows
		}
	}

	return []Window{r.dayWindow(now, dayStart, dayEnd)}
}

// ResolveExplicit builds exactly one window from two free-form local
// stamps of the form "YYYY-MM-DD[ HH:MM]"; an omitted time means 00:00.
// No daily-window substitution is applied.
func (r *Resolver) ResolveExplicit(startRaw, endRaw string) (Window, error) {
	start, err := r.parseLocal(startRaw)
	if err != nil {
		return Window{}, err
	}
	end, err := r.parseLocal(endRaw)
	if err != nil {
		return Window{}, err
	}
	year, month, day := start.Date()
	return Window{
		Start:     start.UTC(),
		End:       end.UTC(),
		LocalDate: time.Date(year, month, day, 0, 0, 0, 0, r.location),
	}, nil
}

func (r *Resolver) parseLocal(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	datePart, timePart, hasTime := strings.Cut(s, " ")
	day, err := time.ParseInLocation(dateLayout, datePart, r.location)
	if err != nil {
		return time.Time{}, ErrInvalidStamp
	}
	clock := ClockTime{}
	if hasTime {
		clock, err = ParseClockTime(timePart)
		if err != nil {
			return time.Time{}, ErrInvalidStamp
		}
	}
	return clock.On(day, r.location), nil
}

func (r *Resolver) dayWindow(d time.Time, dayStart, dayEnd ClockTime) Window {
	year, month, day := d.Date()
	return Window{
		Start:     dayStart.On(d, r.location).UTC(),
		End:       dayEnd.On(d, r.location).UTC(),
		LocalDate: time.Date(year, month, day, 0, 0, 0, 0, r.location),
	}
}
