package failure

import (
	"errors"
	"fmt"
)

// Class is a stable label for a classified cycle failure. Classification
// drives logging and metrics only; every class counts against the same
// retry budget.
type Class string

const (
	ClassNetwork           Class = "network"
	ClassAuthRejected      Class = "auth_rejected"
	ClassRateLimited       Class = "rate_limited"
	ClassLocationNotFound  Class = "location_not_found"
	ClassMalformedResponse Class = "malformed_response"
	ClassDatabaseNotFound  Class = "database_not_found"
	ClassServerError       Class = "server_error"
	ClassUnknown           Class = "unknown"
)

// Error carries a classification alongside the underlying cause.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error from a format string.
func New(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a classification to an existing error.
func Wrap(class Class, err error) *Error {
	return &Error{Class: class, Err: err}
}

// ClassOf extracts the classification from err, walking wrapped errors.
// Errors outside the classified set report ClassUnknown.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ClassUnknown
}
