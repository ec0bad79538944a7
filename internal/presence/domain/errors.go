package presence

import "errors"

var (
	// ErrUnknownStatus is returned when a status spelling has no alias.
	ErrUnknownStatus = errors.New("presence: unknown status")
	// ErrNilEventSource is returned when constructing without an event source.
	ErrNilEventSource = errors.New("presence: nil event source")
	// ErrNilCalendar is returned when a filtered reconstruction has no calendar.
	ErrNilCalendar = errors.New("presence: nil calendar")
	// ErrInvalidEvent is returned when an event misses required fields.
	ErrInvalidEvent = errors.New("presence: invalid event")
)
