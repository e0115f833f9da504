package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/xuri/excelize/v2"
)

// loadExcel reads the first sheet of a workbook into a table.
// Spreadsheets drop trailing empty cells, so short rows (blank ones included)
// are padded back to the header width; rows wider than the header are a format
// error.
func (l *Loader) loadExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, ioError(StageLoad, path, err)
		}
		return nil, formatError(StageLoad, path, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, formatError(StageLoad, path, ErrEmptyFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, formatError(StageLoad, path, fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}

	t, err := tableFromSheet(rows)
	if err != nil {
		return nil, formatError(StageLoad, path, err)
	}
	return t, nil
}

func tableFromSheet(rows [][]string) (*Table, error) {
	// Leading blank rows are skipped the same way blank lines are in text sources.
	start := 0
	for start < len(rows) && len(rows[start]) == 0 {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	header := rows[start]
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	t := NewTable(header)
	for i, row := range rows[start+1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d: %w: got %d fields, expected %d",
				start+i+2, ErrFieldCount, len(row), len(header))
		}
		padded := make([]string, len(header))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	return t, nil
}

// writeExcel writes the table to the first sheet of a new workbook.
// Every cell is stored as a string so values like "06" keep their form.
func writeExcel(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(f.GetSheetName(0))
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}

	if err := sw.SetRow("A1", toCells(t.Columns)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	return f.Write(w)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
