package core

import (
	"time"
)

// Sentinel is the value written into cells that are empty or contain only whitespace.
const Sentinel = "N/A"

// Table is an in-memory tabular dataset.
// Rows are row-major and every row is aligned to Columns.
type Table struct {
	Columns []string   // Schema, in header order
	Rows    [][]string // One slice per record, len(row) == len(Columns)
}

// NewTable creates a table with the given schema and no rows.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column in the schema, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Record returns row i as a column-name to value mapping.
func (t *Table) Record(i int) map[string]string {
	row := t.Rows[i]
	rec := make(map[string]string, len(t.Columns))
	for j, c := range t.Columns {
		rec[c] = row[j]
	}
	return rec
}

// Stage names a step of the cleaning pipeline. Used in errors, logs and metrics.
type Stage string

const (
	StageLoad        Stage = "load"
	StageDeduplicate Stage = "deduplicate"
	StageNormalize   Stage = "normalize"
	StageCombine     Stage = "combine"
	StageWrite       Stage = "write"
)

// NormalizeStats counts how many cells each normalization rule changed.
type NormalizeStats struct {
	Filled             int
	ZerosStripped      int
	WhitespaceStripped int
}

// Report summarizes a single pipeline run.
type Report struct {
	RunID              string        `json:"runId"`
	Input              string        `json:"input"`
	Output             string        `json:"output"`
	Columns            []string      `json:"columns"`
	RowsRead           int           `json:"rowsRead"`
	DuplicatesRemoved  int           `json:"duplicatesRemoved"`
	CellsFilled        int           `json:"cellsFilled"`
	ZerosStripped      int           `json:"zerosStripped"`
	WhitespaceStripped int           `json:"whitespaceStripped"`
	ColumnsCombined    bool          `json:"columnsCombined"`
	RowsWritten        int           `json:"rowsWritten"`
	StartedAt          time.Time     `json:"startedAt"`
	Duration           time.Duration `json:"duration"`
	Error              string        `json:"error,omitempty"` // Non-empty if the run failed
}

// Succeeded reports whether the run completed every stage.
func (r Report) Succeeded() bool {
	return r.Error == ""
}
