package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx used by the run history store.
// *pgxpool.Pool, *pgx.Conn and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RunRecorder persists pipeline run reports.
type RunRecorder interface {
	Record(ctx context.Context, r Report) error
}

// DefaultHistoryLimit caps how many runs Recent returns when no limit is given.
const DefaultHistoryLimit = 20

const createRunsTable = `
CREATE TABLE IF NOT EXISTS clean_runs (
	run_id              UUID PRIMARY KEY,
	input               TEXT NOT NULL,
	output              TEXT NOT NULL,
	rows_read           INTEGER NOT NULL,
	duplicates_removed  INTEGER NOT NULL,
	cells_filled        INTEGER NOT NULL,
	zeros_stripped      INTEGER NOT NULL,
	whitespace_stripped INTEGER NOT NULL,
	columns_combined    BOOLEAN NOT NULL,
	rows_written        INTEGER NOT NULL,
	started_at          TIMESTAMPTZ NOT NULL,
	duration_ms         BIGINT NOT NULL,
	error               TEXT
)`

const insertRun = `
INSERT INTO clean_runs (
	run_id, input, output, rows_read, duplicates_removed, cells_filled,
	zeros_stripped, whitespace_stripped, columns_combined, rows_written,
	started_at, duration_ms, error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectRecentRuns = `
SELECT run_id, input, output, rows_read, duplicates_removed, cells_filled,
	zeros_stripped, whitespace_stripped, columns_combined, rows_written,
	started_at, duration_ms, error
FROM clean_runs
ORDER BY started_at DESC
LIMIT $1`

// PgRunRecorder stores run reports in the clean_runs table.
type PgRunRecorder struct {
	db DBTX
}

// NewPgRunRecorder creates a recorder backed by db.
func NewPgRunRecorder(db DBTX) *PgRunRecorder {
	return &PgRunRecorder{db: db}
}

// EnsureSchema creates the clean_runs table if it does not exist.
func (p *PgRunRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create clean_runs: %w", err)
	}
	return nil
}

// Record inserts one run report.
func (p *PgRunRecorder) Record(ctx context.Context, r Report) error {
	id, err := uuid.Parse(r.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", r.RunID, err)
	}

	errText := pgtype.Text{String: r.Error, Valid: r.Error != ""}

	_, err = p.db.Exec(ctx, insertRun,
		pgtype.UUID{Bytes: id, Valid: true},
		r.Input,
		r.Output,
		r.RowsRead,
		r.DuplicatesRemoved,
		r.CellsFilled,
		r.ZerosStripped,
		r.WhitespaceStripped,
		r.ColumnsCombined,
		r.RowsWritten,
		pgtype.Timestamptz{Time: r.StartedAt, Valid: true},
		r.Duration.Milliseconds(),
		errText,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (p *PgRunRecorder) Recent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := p.db.Query(ctx, selectRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	return reports, nil
}

// scanRun scans one clean_runs row into a Report.
func scanRun(rows pgx.Rows) (Report, error) {
	var (
		id         pgtype.UUID
		r          Report
		startedAt  pgtype.Timestamptz
		durationMs int64
		errText    pgtype.Text
	)

	err := rows.Scan(
		&id, &r.Input, &r.Output, &r.RowsRead, &r.DuplicatesRemoved, &r.CellsFilled,
		&r.ZerosStripped, &r.WhitespaceStripped, &r.ColumnsCombined, &r.RowsWritten,
		&startedAt, &durationMs, &errText,
	)
	if err != nil {
		return Report{}, fmt.Errorf("scan run: %w", err)
	}

	if id.Valid {
		r.RunID = uuid.UUID(id.Bytes).String()
	}
	if startedAt.Valid {
		r.StartedAt = startedAt.Time
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	if errText.Valid {
		r.Error = errText.String
	}
	return r, nil
}
