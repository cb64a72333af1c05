package formdata

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code. The set of codes is closed.
type Code string

const (
	CodeInvalidContentType  Code = "INVALID_CONTENT_TYPE"
	CodeInvalidBoundary     Code = "INVALID_BOUNDARY"
	CodeMalformedHeaders    Code = "MALFORMED_HEADERS"
	CodeMalformedBoundary   Code = "MALFORMED_BOUNDARY"
	CodeLimitFileSize       Code = "LIMIT_FILE_SIZE"
	CodeLimitFileCount      Code = "LIMIT_FILE_COUNT"
	CodeLimitFieldKey       Code = "LIMIT_FIELD_KEY"
	CodeLimitFieldValue     Code = "LIMIT_FIELD_VALUE"
	CodeLimitFieldCount     Code = "LIMIT_FIELD_COUNT"
	CodeLimitPartCount      Code = "LIMIT_PART_COUNT"
	CodeLimitUnexpectedFile Code = "LIMIT_UNEXPECTED_FILE"
	CodeStreamAborted       Code = "STREAM_ABORTED"
)

var messages = map[Code]string{
	CodeInvalidContentType:  "Invalid content type",
	CodeInvalidBoundary:     "Invalid or missing boundary",
	CodeMalformedHeaders:    "Malformed part headers",
	CodeMalformedBoundary:   "Malformed boundary",
	CodeLimitFileSize:       "File too large",
	CodeLimitFileCount:      "Too many files",
	CodeLimitFieldKey:       "Field name too long",
	CodeLimitFieldValue:     "Field value too long",
	CodeLimitFieldCount:     "Too many fields",
	CodeLimitPartCount:      "Too many parts",
	CodeLimitUnexpectedFile: "Unexpected field",
	CodeStreamAborted:       "Stream aborted",
}

// Error is the typed error returned by the codec, the parser and the upload handlers.
// Field carries the offending field name when one is known.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

// Sentinels for errors.Is. Matching is done by code only.
var (
	ErrInvalidContentType  = &Error{Code: CodeInvalidContentType}
	ErrInvalidBoundary     = &Error{Code: CodeInvalidBoundary}
	ErrMalformedHeaders    = &Error{Code: CodeMalformedHeaders}
	ErrMalformedBoundary   = &Error{Code: CodeMalformedBoundary}
	ErrLimitFileSize       = &Error{Code: CodeLimitFileSize}
	ErrLimitFileCount      = &Error{Code: CodeLimitFileCount}
	ErrLimitFieldKey       = &Error{Code: CodeLimitFieldKey}
	ErrLimitFieldValue     = &Error{Code: CodeLimitFieldValue}
	ErrLimitFieldCount     = &Error{Code: CodeLimitFieldCount}
	ErrLimitPartCount      = &Error{Code: CodeLimitPartCount}
	ErrLimitUnexpectedFile = &Error{Code: CodeLimitUnexpectedFile}
	ErrStreamAborted       = &Error{Code: CodeStreamAborted}
)

// NewError builds an *Error with the default message for code.
func NewError(code Code, field string) *Error {
	return &Error{Code: code, Field: field, Message: messages[code]}
}

func newErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = messages[e.Code]
	}
	s := string(e.Code) + ": " + msg
	if e.Field != "" {
		s += " (field " + e.Field + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code carried by err, or an empty code if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsLimit reports whether err is a breach of one of the configured Limits.
// LIMIT_UNEXPECTED_FILE is a classification failure and is not included.
func IsLimit(err error) bool {
	switch CodeOf(err) {
	case CodeLimitFileSize, CodeLimitFileCount, CodeLimitFieldKey, CodeLimitFieldValue,
		CodeLimitFieldCount, CodeLimitPartCount:
		return true
	default:
		return false
	}
}
