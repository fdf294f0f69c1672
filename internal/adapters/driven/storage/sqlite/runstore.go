package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Record persists a finished run. Recording the same ID twice replaces it.
func (s *runStore) Record(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started_at, finished_at, group_id, index_name, locale_index_name,
			items, locales, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			group_id = excluded.group_id,
			index_name = excluded.index_name,
			locale_index_name = excluded.locale_index_name,
			items = excluded.items,
			locales = excluded.locales,
			success = excluded.success,
			error = excluded.error
	`, run.ID, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt),
		run.GroupID, run.IndexName, run.LocaleIndexName,
		run.Items, run.Locales, boolToInt(run.Success), nullString(run.Error))

	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. A limit of zero or
// less returns all runs.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, group_id, index_name, locale_index_name,
			items, locales, success, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying store.
func (s *runStore) Close() error {
	return s.store.Close()
}

// scanRun scans a run from *sql.Rows.
func scanRun(rows *sql.Rows) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var startedAt string
	var finishedAt, errMsg sql.NullString
	var success int

	if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.GroupID, &run.IndexName,
		&run.LocaleIndexName, &run.Items, &run.Locales, &success, &errMsg); err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		run.StartedAt = t
	}
	run.FinishedAt = parseNullableTime(finishedAt)
	run.Success = success == 1
	if errMsg.Valid {
		run.Error = errMsg.String
	}

	return &run, nil
}

// formatTime formats a time as a sortable UTC RFC3339 string.
// Fractional seconds are fixed-width so that string order is time order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
