// Package core provides the business logic for cleaning tabular datasets.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When a run fails, the CLI and the HTTP API both report one of these codes.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Output not writable: The cleaned file could not be written
//	          Action: Check that the output directory exists and is writable
//	          Patterns: "write io error"
//
//	FILE002 - File not found: The input file does not exist
//	          Action: Check the input path
//	          Patterns: "no such file or directory", "cannot find the file"
//
//	FILE003 - Permission denied: The file could not be opened
//	          Action: Check file permissions
//	          Patterns: "permission denied", "access is denied"
//
//	FILE004 - File too large: The input exceeds the configured size limit
//	          Action: Raise CLEAN_MAX_FILE_SIZE or split the file
//	          Patterns: "file too large"
//
//	FILE005 - Empty file: The input has no header row
//	          Action: Provide a file whose first line names the columns
//	          Patterns: "empty file"
//
//	FILE006 - Unsupported type: The file extension is not supported
//	          Action: Use a .csv or .xlsx file
//	          Patterns: "unsupported file type"
//
//	FILE007 - No file: No file was sent with the request
//	          Action: Select a file to clean
//	          Patterns: "no file provided"
//
// # Format Errors (VAL001-VAL099)
//
//	VAL001 - Column count: A row has a different number of fields than the header
//	         Action: Fix the reported line so it matches the header
//	         Patterns: "column count mismatch", "wrong number of fields"
//
//	VAL002 - Duplicate column: The header names the same column twice
//	         Action: Rename one of the columns
//	         Patterns: "duplicate column"
//
//	VAL003 - Blank column: The header contains an empty column name
//	         Action: Give every column a name
//	         Patterns: "blank column name"
//
//	VAL004 - Bad quoting: A quoted field is not terminated correctly
//	         Action: Check quotes on the reported line
//	         Patterns: "quoted-field"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was cancelled before it finished
//	         Patterns: "context canceled"
//
//	RUN002 - Timeout: The run exceeded CLEAN_TIMEOUT
//	         Patterns: "context deadline exceeded"
//
//	RUN003 - Busy: Every run slot of the server is taken
//	         Patterns: "too many concurrent runs"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first match wins,
// so more specific patterns come first.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (lowercase) to user messages.
// Order matters: the write stage pattern must precede the generic OS patterns,
// otherwise a missing output directory is reported as a missing input.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "write io error",
		msg: UserMessage{
			Message: "The cleaned file could not be written",
			Action:  "Check that the output directory exists and is writable",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check the input path",
			Code:    "FILE002",
		},
	},
	{
		pattern: "cannot find the file",
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check the input path",
			Code:    "FILE002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The file could not be opened",
			Action:  "Check file permissions",
			Code:    "FILE003",
		},
	},
	{
		pattern: "access is denied",
		msg: UserMessage{
			Message: "The file could not be opened",
			Action:  "Check file permissions",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The input exceeds the configured size limit",
			Action:  "Raise CLEAN_MAX_FILE_SIZE or split the file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The input has no header row",
			Action:  "Provide a file whose first line names the columns",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "The file type is not supported",
			Action:  "Use a .csv or .xlsx file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Select a file to clean",
			Code:    "FILE007",
		},
	},

	// =========================================================================
	// Format Errors
	// =========================================================================
	{
		pattern: "column count mismatch",
		msg: UserMessage{
			Message: "A row has a different number of fields than the header",
			Action:  "Fix the reported line so it matches the header",
			Code:    "VAL001",
		},
	},
	{
		pattern: "wrong number of fields",
		msg: UserMessage{
			Message: "A row has a different number of fields than the header",
			Action:  "Fix the reported line so it matches the header",
			Code:    "VAL001",
		},
	},
	{
		pattern: "duplicate column",
		msg: UserMessage{
			Message: "The header names the same column twice",
			Action:  "Rename one of the columns",
			Code:    "VAL002",
		},
	},
	{
		pattern: "blank column name",
		msg: UserMessage{
			Message: "The header contains an empty column name",
			Action:  "Give every column a name",
			Code:    "VAL003",
		},
	},
	{
		pattern: "quoted-field",
		msg: UserMessage{
			Message: "A quoted field is not terminated correctly",
			Action:  "Check quotes on the reported line",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// Run Errors
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start the run again when ready",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run timed out",
			Action:  "Raise CLEAN_TIMEOUT or clean a smaller file",
			Code:    "RUN002",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "The server is busy cleaning other files",
			Action:  "Try again in a few seconds",
			Code:    "RUN003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	err := errors.New("load format error: data.csv: line 4: column count mismatch")
//	msg := MapError(err)
//	// msg.Code == "VAL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern (not the ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// Error() returns the user message; Unwrap() returns the technical error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
