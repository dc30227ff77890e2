// Package core provides the domain model shared by every stage of the pipeline.
//
// # Error Codes Reference
//
// This file defines operator-facing error messages with codes for support
// reference. The CLI prints them after a failed command and the HTTP layer
// returns them in JSON error bodies.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source unavailable: The document source could not be read
//	         Action: Check SOURCE_KIND and the source location or credentials
//	         Patterns: "document source"
//
//	SRC002 - Connection refused: Unable to connect to the document database
//	         Action: Verify the database is running and reachable
//	         Patterns: "connection refused"
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table missing: The table file does not exist
//	         Action: Run the extract step first
//	         Sentinel: ErrTableMissing
//
//	TBL002 - Unknown table: The table is not registered
//	         Action: Use one of the tables listed by GET /api/tables
//	         Sentinel: ErrUnknownTable
//
//	TBL003 - Invalid file: The table file is not valid delimited text
//	         Action: Re-run the extract step to regenerate the file
//	         Patterns: "parse csv"
//
//	TBL004 - Empty table: The table file has no data rows
//	         Action: Check that the source collection contains documents
//	         Sentinel: ErrTableEmpty
//
// # Rule Errors (RULE001-RULE099)
//
//	RULE001 - Schema mismatch: A rule references a column the table lacks
//	          Action: Align the rule plan with the table's columns
//	          Sentinel: ErrSchemaMismatch
//
//	RULE002 - Invalid rule: The rule plan is malformed
//	          Action: Fix the rule plan file (see `recipeflow rules`)
//	          Sentinel: ErrRuleConfig
//
// # Publish Errors (PUB001-PUB099)
//
//	PUB001 - Publish failed: A downstream target rejected the table
//	         Action: Check the target's credentials and availability
//	         Patterns: "publish"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was cancelled
//	         Patterns: "context canceled"
//
//	RUN002 - Timeout: The run timed out
//	         Patterns: "context deadline exceeded"
//
//	RUN003 - Busy: Another run holds the table files
//	         Action: Retry after the current run finishes
//	         Sentinel: ErrRunInProgress
//
// # Default Error (ERR000)
//
// Fallback when nothing matches; check the logs for the technical error.
//
// Sentinels are matched with errors.Is first, then patterns are matched
// case-insensitively with strings.Contains. The first match wins.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across packages.
var (
	ErrTableMissing   = errors.New("table missing")
	ErrTableEmpty     = errors.New("table empty")
	ErrUnknownTable   = errors.New("unknown table")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrRuleConfig     = errors.New("invalid rule configuration")
	ErrRunInProgress  = errors.New("another run is in progress")
)

// UserMessage provides operator-friendly error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages are checked before patterns so wrapped errors map exactly.
var sentinelMessages = []sentinelMessage{
	{
		err: ErrTableMissing,
		msg: UserMessage{Message: "The table file does not exist", Action: "Run the extract step first", Code: "TBL001"},
	},
	{
		err: ErrUnknownTable,
		msg: UserMessage{Message: "Unknown table", Action: "Use one of the registered tables", Code: "TBL002"},
	},
	{
		err: ErrTableEmpty,
		msg: UserMessage{Message: "The table file has no data rows", Action: "Check that the source collection contains documents", Code: "TBL004"},
	},
	{
		err: ErrSchemaMismatch,
		msg: UserMessage{Message: "A rule references a column the table does not have", Action: "Align the rule plan with the table's columns", Code: "RULE001"},
	},
	{
		err: ErrRuleConfig,
		msg: UserMessage{Message: "The rule plan is malformed", Action: "Fix the rule plan file", Code: "RULE002"},
	},
	{
		err: ErrRunInProgress,
		msg: UserMessage{Message: "Another run is in progress", Action: "Retry after the current run finishes", Code: "RUN003"},
	},
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched in order; specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Verify the database is running and reachable",
			Code:    "SRC002",
		},
	},
	{
		pattern: "document source",
		msg: UserMessage{
			Message: "The document source could not be read",
			Action:  "Check SOURCE_KIND and the source location or credentials",
			Code:    "SRC001",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The table file is not valid delimited text",
			Action:  "Re-run the extract step to regenerate the file",
			Code:    "TBL003",
		},
	},
	{
		pattern: "publish",
		msg: UserMessage{
			Message: "A downstream target rejected the table",
			Action:  "Check the target's credentials and availability",
			Code:    "PUB001",
		},
	},
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
			Action:  "Try again or raise the timeout",
			Code:    "RUN002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
