package schedule

import (
	"errors"
	"math"
	"testing"
	"time"
)

func mustCalendar(t *testing.T, weekdays []int, start, end string, zone string) *BusinessCalendar {
	t.Helper()
	dayStart, err := ParseClockTime(start)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	dayEnd, err := ParseClockTime(end)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	calendar, err := NewBusinessCalendar(weekdays, dayStart, dayEnd, location)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}
	return calendar
}

func TestOverlapSeconds_FullSaturdayIsZero(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "UTC")

	// 2025-08-16 is a Saturday.
	start := time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	if got := calendar.OverlapSeconds(start, end); got != 0 {
		t.Fatalf("expected 0 overlap on Saturday, got %v", got)
	}
}

func TestOverlapSeconds_SingleBusinessDay(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "America/Sao_Paulo")

	location := calendar.Location()
	// 2025-08-11 is a Monday.
	start := time.Date(2025, 8, 11, 0, 0, 0, 0, location).UTC()
	end := time.Date(2025, 8, 12, 0, 0, 0, 0, location).UTC()
	if got := calendar.OverlapSeconds(start, end); got != 36000 {
		t.Fatalf("expected 36000s, got %v", got)
	}
}

func TestOverlapSeconds_PartialIntersection(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "UTC")

	// Monday 16:30 to Tuesday 09:00: 1.5h Monday + 1h Tuesday.
	start := time.Date(2025, 8, 11, 16, 30, 0, 0, time.UTC)
	end := time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)
	if got := calendar.OverlapSeconds(start, end); got != 2.5*3600 {
		t.Fatalf("expected 9000s, got %v", got)
	}
}

func TestOverlapSeconds_SpansWeekend(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "09:00", "17:00", "UTC")

	// Friday 2025-08-15 00:00 through Tuesday 2025-08-19 00:00:
	// Friday and Monday count, Saturday and Sunday do not.
	start := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)
	if got := calendar.OverlapSeconds(start, end); got != 2*8*3600 {
		t.Fatalf("expected 57600s, got %v", got)
	}
}

func TestOverlapSeconds_InvertedIntervalIsZero(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "UTC")
	now := time.Now().UTC()
	if got := calendar.OverlapSeconds(now, now.Add(-time.Hour)); got != 0 {
		t.Fatalf("expected 0 for inverted interval, got %v", got)
	}
}

func TestOverlapSeconds_DSTSpringForwardDay(t *testing.T) {
	// New York springs forward on Sunday 2025-03-09; Monday 2025-03-10 is a
	// plain 10h business day even though the walk crosses the transition.
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "America/New_York")

	location := calendar.Location()
	start := time.Date(2025, 3, 8, 0, 0, 0, 0, location).UTC()
	end := time.Date(2025, 3, 11, 0, 0, 0, 0, location).UTC()
	if got := calendar.OverlapSeconds(start, end); math.Abs(got-36000) > 1e-6 {
		t.Fatalf("expected 36000s across the DST weekend, got %v", got)
	}
}

func TestOverlapSeconds_StalledDayBoundaryStillTerminates(t *testing.T) {
	calendar := mustCalendar(t, []int{0, 1, 2, 3, 4}, "08:00", "18:00", "UTC")

	// Simulate a day-boundary computation that never advances; the walker
	// must fall back to a fixed 24h step instead of looping forever.
	var calls int
	calendar.nextDay = func(cursor time.Time) time.Time {
		calls++
		return cursor
	}

	// Monday through Wednesday, 08:00-18:00 each day.
	start := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	if got := calendar.OverlapSeconds(start, end); got != 3*36000 {
		t.Fatalf("expected 108000s with forced advance, got %v", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 boundary computations, got %d", calls)
	}
}

func TestNewBusinessCalendar_Validation(t *testing.T) {
	start, _ := ParseClockTime("18:00")
	end, _ := ParseClockTime("08:00")
	if _, err := NewBusinessCalendar([]int{0}, start, end, time.UTC); !errors.Is(err, ErrInvalidDailyWindow) {
		t.Fatalf("expected ErrInvalidDailyWindow, got %v", err)
	}

	okStart, _ := ParseClockTime("08:00")
	okEnd, _ := ParseClockTime("18:00")
	if _, err := NewBusinessCalendar([]int{7}, okStart, okEnd, time.UTC); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
	if _, err := NewBusinessCalendar([]int{0}, okStart, okEnd, nil); !errors.Is(err, ErrNilLocation) {
		t.Fatalf("expected ErrNilLocation, got %v", err)
	}
}

func TestParseClockTime(t *testing.T) {
	cases := []struct {
		raw     string
		want    ClockTime
		wantErr bool
	}{
		{"08:00", ClockTime{8, 0}, false},
		{`"17:30"`, ClockTime{17, 30}, false},
		{" 9:05 ", ClockTime{9, 5}, false},
		{"24:00", ClockTime{}, true},
		{"08:60", ClockTime{}, true},
		{"0800", ClockTime{}, true},
		{"ab:cd", ClockTime{}, true},
	}
	for _, tc := range cases {
		got, err := ParseClockTime(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidClockTime) {
				t.Fatalf("ParseClockTime(%q): expected error, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClockTime(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClockTime(%q): expected %v, got %v", tc.raw, got, tc.want)
		}
	}
}

func TestResolveLocation_Strategy(t *testing.T) {
	if _, resolution := ResolveLocation("America/Sao_Paulo", -3); resolution != ZoneNamed {
		t.Fatalf("expected named resolution, got %s", resolution)
	}
	if location, resolution := ResolveLocation("Not/AZone", -3); resolution != ZoneFixedOffset {
		t.Fatalf("expected fixed offset resolution, got %s", resolution)
	} else if _, offset := time.Now().In(location).Zone(); offset != -3*3600 {
		t.Fatalf("expected -10800s offset, got %d", offset)
	}
	if location, resolution := ResolveLocation("Not/AZone", 0); resolution != ZoneUTC || location != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", resolution)
	}
}
