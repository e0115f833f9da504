package core

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer serializes tables. The zero value writes comma-delimited text.
type Writer struct {
	Comma rune
}

// NewWriter creates a writer using the given delimiter for text output.
func NewWriter(comma rune) *Writer {
	return &Writer{Comma: comma}
}

// WriteFile writes t to path with a comma delimiter.
func WriteFile(path string, t *Table) error {
	return NewWriter(',').WriteFile(path, t)
}

// WriteFile writes t to path. Files ending in .xlsx are written as a workbook.
//
// Output goes to a temporary file in the destination directory and is renamed
// into place only after everything was written, so a failed write never leaves
// a truncated file at path.
func (w *Writer) WriteFile(path string, t *Table) error {
	encode := w.WriteTable
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		encode = writeExcel
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioError(StageWrite, path, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := encode(tmp, t); err != nil {
		return ioError(StageWrite, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return ioError(StageWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioError(StageWrite, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return ioError(StageWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioError(StageWrite, path, err)
	}

	committed = true
	return nil
}

// WriteTable writes the header line followed by one line per record.
// A table with no rows produces the header only. A record made of a single
// empty field is written as "" so that readers do not skip it as a blank line.
func (w *Writer) WriteTable(out io.Writer, t *Table) error {
	bw := bufio.NewWriter(out)
	cw := csv.NewWriter(bw)
	if w.Comma != 0 {
		cw.Comma = w.Comma
	}

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("record %d: %w: got %d fields, expected %d",
				i+1, ErrFieldCount, len(row), len(t.Columns))
		}
		if len(row) == 1 && row[0] == "" {
			cw.Flush()
			if _, err := bw.WriteString("\"\"\n"); err != nil {
				return fmt.Errorf("write record %d: %w", i+1, err)
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
