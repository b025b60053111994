package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindIO             Kind = "IO"
	KindParse          Kind = "PARSE"
	KindTypeConversion Kind = "TYPE_CONVERSION"
	KindDateParse      Kind = "DATE_PARSE"
	KindColumn         Kind = "COLUMN"
	KindConfig         Kind = "CONFIG"
)

// Sentinels usable with errors.Is; any *Error of the same Kind matches.
var (
	ErrIO             = &Error{Kind: KindIO}
	ErrParse          = &Error{Kind: KindParse}
	ErrTypeConversion = &Error{Kind: KindTypeConversion}
	ErrDateParse      = &Error{Kind: KindDateParse}
	ErrColumn         = &Error{Kind: KindColumn}
	ErrConfig         = &Error{Kind: KindConfig}
)

// Error is the error type returned by every pipeline stage.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Column  string
	// Row is the zero-based data row, or -1 when not tied to a row.
	Row   int
	Value string
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Kind)
	if e.Op != "" {
		fmt.Fprintf(&b, " %s:", e.Op)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " %s", e.Message)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q", e.Column)
		if e.Row >= 0 {
			fmt.Fprintf(&b, ", row %d", e.Row)
		}
		if e.Value != "" {
			fmt.Fprintf(&b, ", value %q", e.Value)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewIOError creates a file access error
func NewIOError(op, path string, cause error) *Error {
	return &Error{Kind: KindIO, Op: op, Message: path, Row: -1, Cause: cause}
}

// NewParseError creates a malformed-input error. line is 1-based; 0 means unknown.
func NewParseError(op string, line int, message string, cause error) *Error {
	if line > 0 {
		message = fmt.Sprintf("line %d: %s", line, message)
	}
	return &Error{Kind: KindParse, Op: op, Message: message, Row: -1, Cause: cause}
}

// NewTypeConversionError reports a cell that cannot be coerced.
func NewTypeConversionError(op, column string, row int, value string, cause error) *Error {
	return &Error{
		Kind:    KindTypeConversion,
		Op:      op,
		Message: "cannot convert value",
		Column:  column,
		Row:     row,
		Value:   value,
		Cause:   cause,
	}
}

// NewDateParseError reports an unparseable timestamp cell.
func NewDateParseError(op, column string, row int, value string, cause error) *Error {
	return &Error{
		Kind:    KindDateParse,
		Op:      op,
		Message: "cannot parse timestamp",
		Column:  column,
		Row:     row,
		Value:   value,
		Cause:   cause,
	}
}

// NewColumnError reports a missing column.
func NewColumnError(op, column string) *Error {
	return &Error{Kind: KindColumn, Op: op, Message: "column not found", Column: column, Row: -1}
}

// NewConfigError reports invalid configuration.
func NewConfigError(message string, cause error) *Error {
	return &Error{Kind: KindConfig, Message: message, Row: -1, Cause: cause}
}
