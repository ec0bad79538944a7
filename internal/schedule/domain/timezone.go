package schedule

import (
	"fmt"
	"time"
)

// ZoneResolution tags which branch of the timezone fallback chain fired,
// so callers can observe the outcome instead of guessing.
type ZoneResolution int

const (
	// ZoneNamed means the IANA name resolved against the zone database.
	ZoneNamed ZoneResolution = iota
	// ZoneFixedOffset means the configured fixed UTC offset was used.
	ZoneFixedOffset
	// ZoneUTC means both earlier branches failed and UTC was used.
	ZoneUTC
)

// String returns the resolution label.
func (z ZoneResolution) String() string {
	switch z {
	case ZoneNamed:
		return "named"
	case ZoneFixedOffset:
		return "fixed_offset"
	default:
		return "utc"
	}
}

// ResolveLocation resolves a timezone as an ordered strategy: IANA name,
// then a fixed UTC offset in hours, then UTC.
func ResolveLocation(name string, offsetHours int) (*time.Location, ZoneResolution) {
	if name != "" {
		if location, err := time.LoadLocation(name); err == nil {
			return location, ZoneNamed
		}
	}
	if offsetHours != 0 {
		label := fmt.Sprintf("UTC%+d", offsetHours)
		return time.FixedZone(label, offsetHours*3600), ZoneFixedOffset
	}
	return time.UTC, ZoneUTC
}
