package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	presence "presence-ledger/internal/presence/domain"
)

const defaultPresenceTable = "presence_log"

// PresenceRepository is the Postgres presence log. It only ever appends and
// reads; rows are never updated or deleted.
type PresenceRepository struct {
	db    *sql.DB
	table string
}

// NewPresenceRepository constructs a repository with default table name.
func NewPresenceRepository(db *sql.DB, opts ...RepositoryOption) *PresenceRepository {
	repo := &PresenceRepository{db: db, table: defaultPresenceTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*PresenceRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *PresenceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Append inserts one status event.
func (r *PresenceRepository) Append(ctx context.Context, event presence.StatusEvent) error {
	if r == nil || r.db == nil {
		return errors.New("presence repo: nil db")
	}
	if err := event.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	scope_id,
	subject_id,
	display_name,
	status,
	manual,
	ts
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ScopeID,
		event.SubjectID,
		event.DisplayName,
		string(event.Status),
		event.Manual,
		event.At.UTC(),
	)
	return err
}

// AppendBatch inserts a batch of status events in one transaction.
func (r *PresenceRepository) AppendBatch(ctx context.Context, events []presence.StatusEvent) error {
	if r == nil || r.db == nil {
		return errors.New("presence repo: nil db")
	}
	if len(events) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	scope_id,
	subject_id,
	display_name,
	status,
	manual,
	ts
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, event := range events {
		if err := event.Validate(); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(
			ctx,
			event.ScopeID,
			event.SubjectID,
			event.DisplayName,
			string(event.Status),
			event.Manual,
			event.At.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LatestBefore returns the newest event strictly before the given instant.
func (r *PresenceRepository) LatestBefore(ctx context.Context, scopeID, subjectID string, before time.Time) (*presence.StatusEvent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("presence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT scope_id, subject_id, display_name, status, manual, ts
FROM %s
WHERE scope_id = $1
	AND subject_id = $2
	AND ts < $3
ORDER BY ts DESC, id DESC
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, scopeID, subjectID, before.UTC()))
}

// RangeInclusive returns events with start <= ts <= end, oldest first.
// Equal timestamps keep insertion order via the serial key.
func (r *PresenceRepository) RangeInclusive(ctx context.Context, scopeID, subjectID string, start, end time.Time) ([]presence.StatusEvent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("presence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT scope_id, subject_id, display_name, status, manual, ts
FROM %s
WHERE scope_id = $1
	AND subject_id = $2
	AND ts >= $3
	AND ts <= $4
ORDER BY ts ASC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, scopeID, subjectID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []presence.StatusEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// LatestEvent returns the newest event for a subject, or nil.
func (r *PresenceRepository) LatestEvent(ctx context.Context, scopeID, subjectID string) (*presence.StatusEvent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("presence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT scope_id, subject_id, display_name, status, manual, ts
FROM %s
WHERE scope_id = $1
	AND subject_id = $2
ORDER BY ts DESC, id DESC
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, scopeID, subjectID))
}

// LatestWithStatus returns the newest event holding the given status, or nil.
func (r *PresenceRepository) LatestWithStatus(ctx context.Context, scopeID, subjectID string, status presence.Status) (*presence.StatusEvent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("presence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT scope_id, subject_id, display_name, status, manual, ts
FROM %s
WHERE scope_id = $1
	AND subject_id = $2
	AND status = $3
ORDER BY ts DESC, id DESC
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, scopeID, subjectID, string(status)))
}

func (r *PresenceRepository) scanOne(row *sql.Row) (*presence.StatusEvent, error) {
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (presence.StatusEvent, error) {
	var event presence.StatusEvent
	var status string
	var displayName sql.NullString
	if err := row.Scan(&event.ScopeID, &event.SubjectID, &displayName, &status, &event.Manual, &event.At); err != nil {
		return presence.StatusEvent{}, err
	}
	event.Status = presence.Status(status)
	if displayName.Valid {
		event.DisplayName = displayName.String
	}
	event.At = event.At.UTC()
	return event, nil
}
