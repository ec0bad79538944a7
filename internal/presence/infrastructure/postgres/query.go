package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	presence "presence-ledger/internal/presence/domain"
	"presence-ledger/internal/report/application"
)

// ActivityQuery serves the grouped read models behind reports, leaderboards
// and exports.
type ActivityQuery struct {
	db    *sql.DB
	table string
}

// NewActivityQuery constructs a query with default table name.
func NewActivityQuery(db *sql.DB, opts ...QueryOption) *ActivityQuery {
	query := &ActivityQuery{db: db, table: defaultPresenceTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the activity query.
type QueryOption func(*ActivityQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *ActivityQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// StatusCounts returns event counts per status for a scope since an instant.
func (q *ActivityQuery) StatusCounts(ctx context.Context, scopeID string, since time.Time) (map[presence.Status]int, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("activity query: nil db")
	}

	query := fmt.Sprintf(`
SELECT status, COUNT(*)
FROM %s
WHERE scope_id = $1
	AND ts >= $2
GROUP BY status`, q.table)

	rows, err := q.db.QueryContext(ctx, query, scopeID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[presence.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[presence.Status(status)] = count
	}
	return counts, rows.Err()
}

// SubjectStatusCounts returns event counts per status for one subject.
func (q *ActivityQuery) SubjectStatusCounts(ctx context.Context, scopeID, subjectID string, since time.Time) (map[presence.Status]int, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("activity query: nil db")
	}

	query := fmt.Sprintf(`
SELECT status, COUNT(*)
FROM %s
WHERE scope_id = $1
	AND subject_id = $2
	AND ts >= $3
GROUP BY status`, q.table)

	rows, err := q.db.QueryContext(ctx, query, scopeID, subjectID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[presence.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[presence.Status(status)] = count
	}
	return counts, rows.Err()
}

// SubjectActivity returns per-subject status counts ordered by total
// descending. A non-positive limit returns every subject.
func (q *ActivityQuery) SubjectActivity(ctx context.Context, scopeID string, since time.Time, limit int) ([]application.SubjectActivity, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("activity query: nil db")
	}

	query := fmt.Sprintf(`
SELECT subject_id,
	MAX(display_name) AS display_name,
	SUM(CASE WHEN status = 'online'  THEN 1 ELSE 0 END) AS online,
	SUM(CASE WHEN status = 'idle'    THEN 1 ELSE 0 END) AS idle,
	SUM(CASE WHEN status = 'dnd'     THEN 1 ELSE 0 END) AS dnd,
	SUM(CASE WHEN status = 'offline' THEN 1 ELSE 0 END) AS offline,
	COUNT(*) AS total
FROM %s
WHERE scope_id = $1
	AND ts >= $2
GROUP BY subject_id
ORDER BY total DESC`, q.table)
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := q.db.QueryContext(ctx, query, scopeID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activity []application.SubjectActivity
	for rows.Next() {
		var entry application.SubjectActivity
		var displayName sql.NullString
		var online, idle, dnd, offline int
		if err := rows.Scan(&entry.SubjectID, &displayName, &online, &idle, &dnd, &offline, &entry.Total); err != nil {
			return nil, err
		}
		if displayName.Valid {
			entry.DisplayName = displayName.String
		}
		entry.Counts = map[presence.Status]int{
			presence.StatusOnline:  online,
			presence.StatusIdle:    idle,
			presence.StatusDnd:     dnd,
			presence.StatusOffline: offline,
		}
		activity = append(activity, entry)
	}
	return activity, rows.Err()
}

// EventCount returns the total number of rows in the presence log. Used by
// the observability gauge.
func (q *ActivityQuery) EventCount(ctx context.Context) (int64, error) {
	if q == nil || q.db == nil {
		return 0, errors.New("activity query: nil db")
	}
	var count int64
	err := q.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", q.table)).Scan(&count)
	return count, err
}
