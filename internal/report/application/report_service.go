package application

import (
	"context"
	"errors"
	"time"

	presence "presence-ledger/internal/presence/domain"
	schedule "presence-ledger/internal/schedule/domain"
)

const defaultReportDays = 7

// ErrNilActivityReader is returned when constructing without a reader.
var ErrNilActivityReader = errors.New("report: nil activity reader")

// SubjectActivity is one subject's event counts over a report period.
type SubjectActivity struct {
	SubjectID   string
	DisplayName string
	Counts      map[presence.Status]int
	Total       int
}

// ActivityReader provides the grouped read models over the presence log.
type ActivityReader interface {
	StatusCounts(ctx context.Context, scopeID string, since time.Time) (map[presence.Status]int, error)
	SubjectStatusCounts(ctx context.Context, scopeID, subjectID string, since time.Time) (map[presence.Status]int, error)
	SubjectActivity(ctx context.Context, scopeID string, since time.Time, limit int) ([]SubjectActivity, error)
}

// ReportService produces status-count summaries over trailing day ranges.
type ReportService struct {
	reader           ActivityReader
	leaderboardLimit int
	clock            schedule.Clock
}

// NewReportService constructs a report service.
func NewReportService(reader ActivityReader, leaderboardLimit int, clock schedule.Clock) (*ReportService, error) {
	if reader == nil {
		return nil, ErrNilActivityReader
	}
	if leaderboardLimit <= 0 {
		leaderboardLimit = 10
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	return &ReportService{reader: reader, leaderboardLimit: leaderboardLimit, clock: clock}, nil
}

// Summary returns scope-wide event counts per status for the last N days.
func (s *ReportService) Summary(ctx context.Context, scopeID string, days int) (map[presence.Status]int, error) {
	return s.reader.StatusCounts(ctx, scopeID, s.since(days))
}

// SubjectBreakdown returns one subject's event counts for the last N days.
func (s *ReportService) SubjectBreakdown(ctx context.Context, scopeID, subjectID string, days int) (map[presence.Status]int, error) {
	return s.reader.SubjectStatusCounts(ctx, scopeID, subjectID, s.since(days))
}

// Leaderboard returns the most active subjects for the last N days.
func (s *ReportService) Leaderboard(ctx context.Context, scopeID string, days int) ([]SubjectActivity, error) {
	return s.reader.SubjectActivity(ctx, scopeID, s.since(days), s.leaderboardLimit)
}

// Export returns per-subject counts for every subject, for CSV and
// workbook exports.
func (s *ReportService) Export(ctx context.Context, scopeID string, days int) ([]SubjectActivity, error) {
	return s.reader.SubjectActivity(ctx, scopeID, s.since(days), 0)
}

func (s *ReportService) since(days int) time.Time {
	if days <= 0 {
		days = defaultReportDays
	}
	return s.clock.Now().UTC().AddDate(0, 0, -days)
}
