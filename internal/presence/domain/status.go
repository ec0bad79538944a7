package presence

import "strings"

// Status is one member of the closed presence status set.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDnd     Status = "dnd"
	StatusOffline Status = "offline"
)

// DefaultStatus is assumed for a subject with no prior event.
const DefaultStatus = StatusOffline

// AllStatuses returns the status set in report order.
func AllStatuses() []Status {
	return []Status{StatusOnline, StatusIdle, StatusDnd, StatusOffline}
}

// statusAliases maps accepted spellings onto the closed set.
var statusAliases = map[string]Status{
	"online":       StatusOnline,
	"on":           StatusOnline,
	"idle":         StatusIdle,
	"ausente":      StatusIdle,
	"afk":          StatusIdle,
	"dnd":          StatusDnd,
	"nao perturbe": StatusDnd,
	"np":           StatusDnd,
	"offline":      StatusOffline,
	"off":          StatusOffline,
	"invis":        StatusOffline,
	"invisible":    StatusOffline,
}

// ParseStatus resolves a raw status spelling against the alias table.
// Unknown spellings are rejected rather than passed through.
func ParseStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}
	return "", ErrUnknownStatus
}

// Valid reports whether the status is a member of the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDnd, StatusOffline:
		return true
	}
	return false
}

// ActiveMode selects which statuses count toward activity thresholds.
type ActiveMode string

const (
	// ActiveModeAll counts online, idle and dnd as active.
	ActiveModeAll ActiveMode = "active"
	// ActiveModeOnline counts only online as active.
	ActiveModeOnline ActiveMode = "online"
)

// ParseActiveMode resolves a raw mode spelling. Unknown spellings degrade
// to ActiveModeAll so a conversational front end always gets an answer.
func ParseActiveMode(raw string) ActiveMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online", "strict", "estrito":
		return ActiveModeOnline
	default:
		return ActiveModeAll
	}
}

// Statuses returns the active status subset for the mode.
func (m ActiveMode) Statuses() []Status {
	if m == ActiveModeOnline {
		return []Status{StatusOnline}
	}
	return []Status{StatusOnline, StatusIdle, StatusDnd}
}
