package core

// loader.go reads a delimited text source into a Table.
//
// Source bytes are cleaned before parsing:
//   - A UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools is removed
//   - Invalid UTF-8 sequences are replaced with U+FFFD
//
// The first record is the header. Every other record must have exactly as many
// fields as the header; a mismatch is a format error naming the line.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFileSize is the source size limit used when none is configured (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads tabular sources. The zero value is not usable; use NewLoader.
type Loader struct {
	Comma       rune  // Field delimiter for delimited text sources
	MaxFileSize int64 // Sources larger than this are rejected; <= 0 disables the check
}

// NewLoader creates a loader for the given delimiter and size limit.
func NewLoader(comma rune, maxFileSize int64) *Loader {
	if comma == 0 {
		comma = ','
	}
	return &Loader{Comma: comma, MaxFileSize: maxFileSize}
}

// LoadFile reads the source at path with a comma delimiter and the default size limit.
func LoadFile(path string) (*Table, error) {
	return NewLoader(',', DefaultMaxFileSize).LoadFile(path)
}

// LoadFile reads the source at path. Files ending in .xlsx are read from their
// first sheet; everything else is parsed as delimited text.
func (l *Loader) LoadFile(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ioError(StageLoad, path, err)
	}
	if info.IsDir() {
		return nil, ioError(StageLoad, path, errors.New("is a directory"))
	}
	if l.MaxFileSize > 0 && info.Size() > l.MaxFileSize {
		return nil, ioError(StageLoad, path, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrFileTooLarge, info.Size(), l.MaxFileSize))
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return l.loadExcel(path)
	case ".xls":
		return nil, formatError(StageLoad, path, fmt.Errorf("unsupported file type: %s", ext))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(StageLoad, path, err)
	}
	defer f.Close()

	return l.read(f, path)
}

// ReadTable reads delimited text from r.
func (l *Loader) ReadTable(r io.Reader) (*Table, error) {
	return l.read(r, "")
}

// read parses delimited text from r. path only labels errors.
func (l *Loader) read(r io.Reader, path string) (*Table, error) {
	if l.MaxFileSize > 0 {
		r = io.LimitReader(r, l.MaxFileSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ioError(StageLoad, path, err)
	}
	if l.MaxFileSize > 0 && int64(len(data)) > l.MaxFileSize {
		return nil, ioError(StageLoad, path, fmt.Errorf("%w: exceeds limit of %d bytes",
			ErrFileTooLarge, l.MaxFileSize))
	}

	t, err := l.parse(data)
	if err != nil {
		return nil, formatError(StageLoad, path, err)
	}
	return t, nil
}

// parse decodes cleaned source bytes into a table.
func (l *Loader) parse(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = l.Comma
	r.FieldsPerRecord = -1 // counted here so the error names both sizes

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	t := NewTable(header)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w: got %d fields, expected %d",
				line, ErrFieldCount, len(row), len(header))
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// checkHeader rejects header rows that cannot serve as a schema.
func checkHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("%w at position %d", ErrBlankHeader, i+1)
		}
		if seen[name] {
			return fmt.Errorf("%w %q", ErrDuplicateHeader, name)
		}
		seen[name] = true
	}
	return nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
