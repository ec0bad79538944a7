package application

import (
	"context"
	"testing"
	"time"

	presence "presence-ledger/internal/presence/domain"
)

type capturingReader struct {
	since time.Time
	limit int
}

func (c *capturingReader) StatusCounts(ctx context.Context, scopeID string, since time.Time) (map[presence.Status]int, error) {
	c.since = since
	return map[presence.Status]int{}, nil
}

func (c *capturingReader) SubjectStatusCounts(ctx context.Context, scopeID, subjectID string, since time.Time) (map[presence.Status]int, error) {
	c.since = since
	return map[presence.Status]int{}, nil
}

func (c *capturingReader) SubjectActivity(ctx context.Context, scopeID string, since time.Time, limit int) ([]SubjectActivity, error) {
	c.since = since
	c.limit = limit
	return nil, nil
}

type stoppedClock struct{ now time.Time }

func (c stoppedClock) Now() time.Time { return c.now }

func TestReportServiceWindowDefaults(t *testing.T) {
	now := time.Date(2025, 8, 11, 12, 0, 0, 0, time.UTC)
	reader := &capturingReader{}
	service, err := NewReportService(reader, 5, stoppedClock{now: now})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.Summary(context.Background(), "g1", 0); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if want := now.AddDate(0, 0, -7); !reader.since.Equal(want) {
		t.Fatalf("expected default 7 day window since %v, got %v", want, reader.since)
	}

	if _, err := service.Summary(context.Background(), "g1", 30); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if want := now.AddDate(0, 0, -30); !reader.since.Equal(want) {
		t.Fatalf("expected 30 day window since %v, got %v", want, reader.since)
	}
}

func TestReportServiceLimits(t *testing.T) {
	reader := &capturingReader{}
	service, err := NewReportService(reader, 5, stoppedClock{now: time.Now()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.Leaderboard(context.Background(), "g1", 7); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if reader.limit != 5 {
		t.Fatalf("expected leaderboard limit 5, got %d", reader.limit)
	}

	if _, err := service.Export(context.Background(), "g1", 7); err != nil {
		t.Fatalf("export: %v", err)
	}
	if reader.limit != 0 {
		t.Fatalf("expected unlimited export, got limit %d", reader.limit)
	}
}

func TestReportServiceRequiresReader(t *testing.T) {
	if _, err := NewReportService(nil, 5, nil); err != ErrNilActivityReader {
		t.Fatalf("expected ErrNilActivityReader, got %v", err)
	}
}
