// Package domainerrors carries the error taxonomy shared by services and the
// HTTP layer. Services translate infrastructure facts (see pkg/platform/sentinel)
// into a Code; transports map the Code to a status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure that callers can branch on.
type Code string

const (
	// CodeInvalidInput: caller-supplied data failed a precondition.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound: the referenced visitor does not exist.
	CodeNotFound Code = "not_found"
	// CodeReferenceImageMissing: the stored reference photo could not be resolved.
	CodeReferenceImageMissing Code = "reference_image_missing"
	// CodeOracleUnavailable: the comparison service could not be reached in time.
	CodeOracleUnavailable Code = "oracle_unavailable"
	// CodeOracleError: the comparison service answered with an error or garbage.
	CodeOracleError Code = "oracle_error"
	// CodePersistence: the document store or blob store rejected a write.
	CodePersistence Code = "persistence_error"
	// CodeInternal: anything unclassified.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a domain error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the message of the outermost domain error, or "" if err is
// not a domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
