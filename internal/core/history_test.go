package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records Exec calls and serves canned rows to Query.
type fakeDB struct {
	execs    []execCall
	execErr  error
	rows     [][]any
	queryErr error
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.lastArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, pos: -1}, nil
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func TestPgRunRecorder_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPgRunRecorder(db).EnsureSchema(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS clean_runs")
}

func TestPgRunRecorder_EnsureSchemaError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("permission denied for schema public")}
	err := NewPgRunRecorder(db).EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean_runs")
}

func TestPgRunRecorder_Record(t *testing.T) {
	db := &fakeDB{}
	id := uuid.New()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := NewPgRunRecorder(db).Record(context.Background(), Report{
		RunID:             id.String(),
		Input:             "data.csv",
		Output:            "applied_changes_data.csv",
		RowsRead:          10,
		DuplicatesRemoved: 2,
		RowsWritten:       8,
		ColumnsCombined:   true,
		StartedAt:         started,
		Duration:          1500 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.True(t, strings.Contains(call.sql, "INSERT INTO clean_runs"))
	require.Len(t, call.args, 13)
	assert.Equal(t, pgtype.UUID{Bytes: id, Valid: true}, call.args[0])
	assert.Equal(t, "data.csv", call.args[1])
	assert.Equal(t, 10, call.args[3])
	assert.Equal(t, true, call.args[8])
	assert.Equal(t, pgtype.Timestamptz{Time: started, Valid: true}, call.args[10])
	assert.Equal(t, int64(1500), call.args[11])
	assert.Equal(t, pgtype.Text{}, call.args[12], "successful runs store NULL error")
}

func TestPgRunRecorder_RecordFailure(t *testing.T) {
	db := &fakeDB{}
	err := NewPgRunRecorder(db).Record(context.Background(), Report{
		RunID: uuid.NewString(),
		Error: "load io error: data.csv: missing",
	})
	require.NoError(t, err)
	assert.Equal(t, pgtype.Text{String: "load io error: data.csv: missing", Valid: true}, db.execs[0].args[12])
}

func TestPgRunRecorder_RecordBadRunID(t *testing.T) {
	db := &fakeDB{}
	err := NewPgRunRecorder(db).Record(context.Background(), Report{RunID: "not-a-uuid"})
	require.Error(t, err)
	assert.Empty(t, db.execs)
}

func TestPgRunRecorder_Recent(t *testing.T) {
	id := uuid.New()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{{
		pgtype.UUID{Bytes: id, Valid: true},
		"data.csv", "out.csv",
		10, 2, 3, 4, 5, true, 8,
		pgtype.Timestamptz{Time: started, Valid: true},
		int64(250),
		pgtype.Text{},
	}}}

	reports, err := NewPgRunRecorder(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []any{DefaultHistoryLimit}, db.lastArgs)

	r := reports[0]
	assert.Equal(t, id.String(), r.RunID)
	assert.Equal(t, "data.csv", r.Input)
	assert.Equal(t, 10, r.RowsRead)
	assert.Equal(t, 2, r.DuplicatesRemoved)
	assert.Equal(t, 3, r.CellsFilled)
	assert.Equal(t, 4, r.ZerosStripped)
	assert.Equal(t, 5, r.WhitespaceStripped)
	assert.True(t, r.ColumnsCombined)
	assert.Equal(t, 8, r.RowsWritten)
	assert.Equal(t, started, r.StartedAt)
	assert.Equal(t, 250*time.Millisecond, r.Duration)
	assert.True(t, r.Succeeded())
}

func TestPgRunRecorder_RecentQueryError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("connection refused")}
	_, err := NewPgRunRecorder(db).Recent(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, []any{5}, db.lastArgs)
	assert.Contains(t, err.Error(), "query runs")
}
