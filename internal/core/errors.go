package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every pipeline failure wraps exactly one of these.
var (
	// ErrIO reports a source that cannot be opened or read, or a sink that cannot be written.
	ErrIO = errors.New("io error")

	// ErrFormat reports a malformed source (bad header, field count mismatch, broken quoting).
	ErrFormat = errors.New("format error")
)

// Format error causes. Wrapped by a StageError with Kind ErrFormat.
var (
	ErrEmptyFile       = errors.New("empty file")
	ErrFieldCount      = errors.New("column count mismatch")
	ErrDuplicateHeader = errors.New("duplicate column")
	ErrBlankHeader     = errors.New("blank column name")
	ErrFileTooLarge    = errors.New("file too large")
)

// StageError is returned when a pipeline stage fails.
// It identifies the stage, the error kind and the file involved.
type StageError struct {
	Stage Stage
	Kind  error  // ErrIO or ErrFormat
	Path  string // File involved, if any
	Err   error
}

func (e *StageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Stage, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func ioError(stage Stage, path string, err error) error {
	return &StageError{Stage: stage, Kind: ErrIO, Path: path, Err: err}
}

func formatError(stage Stage, path string, err error) error {
	return &StageError{Stage: stage, Kind: ErrFormat, Path: path, Err: err}
}

// IsIOError reports whether err is an I/O failure of the source or sink.
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsFormatError reports whether err is caused by a malformed source.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// FailedStage returns the stage that produced err, or "" if err is not a StageError.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
