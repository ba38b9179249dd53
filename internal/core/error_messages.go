package core

// error_messages.go maps technical errors to short operator-facing messages
// with a code and a suggested action.
//
// # Error Codes
//
//	LOAD001 - Input file or directory not found
//	LOAD002 - A CSV cell could not be parsed as its column type
//	LOAD003 - The CSV header is missing a required column
//	LOAD004 - The CSV file is empty or malformed
//	TBL001  - A job's input table does not exist
//	VAL001  - A post-job check failed (strict mode)
//	DB001   - Connection refused
//	DB002   - Timeout or cancelled
//	DB003   - Undefined table reported by PostgreSQL
//	DB004   - Insufficient privilege
//	DB005   - Table already exists
//	ERR000  - Anything else; check the logs for the original error
//
// Typed errors are matched first, then PostgreSQL SQLSTATE codes, then
// message patterns (case-insensitive substring, first match wins).

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgFileNotFound = UserMessage{
		Message: "Input file not found",
		Action:  "Check the path or the LOADER_DATA_DIR setting",
		Code:    "LOAD001",
	}
	msgInvalidCell = UserMessage{
		Message: "A CSV value could not be parsed",
		Action:  "Fix the reported line or override the column type in the manifest",
		Code:    "LOAD002",
	}
	msgMissingColumn = UserMessage{
		Message: "Required column is missing from CSV",
		Action:  "Check that the header contains every schema column",
		Code:    "LOAD003",
	}
	msgBadCSV = UserMessage{
		Message: "The CSV file is empty or malformed",
		Action:  "Ensure the file has a header row and consistent quoting",
		Code:    "LOAD004",
	}
	msgTableNotFound = UserMessage{
		Message: "Input table does not exist",
		Action:  "Run the earlier pipeline steps first",
		Code:    "TBL001",
	}
	msgValidation = UserMessage{
		Message: "Validation checks failed and the job was rolled back",
		Action:  "Inspect the failed checks, or rerun with --advisory to keep the result",
		Code:    "VAL001",
	}
	msgConnRefused = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check DATABASE_URL and that PostgreSQL is running",
		Code:    "DB001",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out or was cancelled",
		Action:  "Raise PIPELINE_JOB_TIMEOUT or try again",
		Code:    "DB002",
	}
	msgUndefinedTable = UserMessage{
		Message: "Table does not exist in the database",
		Action:  "Run the earlier pipeline steps first",
		Code:    "DB003",
	}
	msgPermission = UserMessage{
		Message: "Permission denied",
		Action:  "Grant the pipeline user CREATE and DROP on the schema",
		Code:    "DB004",
	}
	msgTableExists = UserMessage{
		Message: "Table already exists",
		Action:  "Drop the table or let the loader skip it",
		Code:    "DB005",
	}
)

// pgCodes maps PostgreSQL SQLSTATE codes to user messages.
var pgCodes = map[string]UserMessage{
	"42P01": msgUndefinedTable,
	"42P07": msgTableExists,
	"42501": msgPermission,
	"57014": msgTimeout, // query_canceled
	"22P02": msgInvalidCell,
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered: more specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "missing required column", msg: msgMissingColumn},
	{pattern: "empty file", msg: msgBadCSV},
	{pattern: "read csv", msg: msgBadCSV},
	{pattern: "invalid ", msg: msgInvalidCell},
	{pattern: "connection refused", msg: msgConnRefused},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "deadline exceeded", msg: msgTimeout},
	{pattern: "context canceled", msg: msgTimeout},
	{pattern: "permission denied", msg: msgPermission},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage if err is nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		fileErr  *MissingFileError
		tableErr *MissingTableError
		valErr   *ValidationError
		pgErr    *pgconn.PgError
	)
	switch {
	case errors.As(err, &fileErr):
		return msgFileNotFound
	case errors.As(err, &tableErr):
		return msgTableNotFound
	case errors.As(err, &valErr):
		return msgValidation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return msgTimeout
	case errors.As(err, &pgErr):
		if msg, ok := pgCodes[pgErr.Code]; ok {
			return msg
		}
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

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
