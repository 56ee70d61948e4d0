package oracle

import (
	"errors"
	"fmt"
)

// Category classifies comparison failures.
type Category string

const (
	// CategoryUnavailable: the service could not be reached or did not answer in time.
	CategoryUnavailable Category = "unavailable"
	// CategoryBadResponse: the service answered with an error status or a body we cannot use.
	CategoryBadResponse Category = "bad_response"
)

// Error wraps comparison failures with a normalized category.
type Error struct {
	Category   Category
	Message    string
	StatusCode int
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("oracle [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("oracle [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category Category, message string, underlying error) *Error {
	return &Error{Category: category, Message: message, Underlying: underlying}
}

// IsUnavailable reports whether err is a transport-level comparison failure.
func IsUnavailable(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Category == CategoryUnavailable
}

// IsBadResponse reports whether err is a malformed or error response.
func IsBadResponse(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Category == CategoryBadResponse
}
