package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a failure that already knows the HTTP status it should be
// answered with, e.g. a 404 raised by routing or a 403 raised by an access
// check deep inside a handler.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("http %d: %s: %v", e.Status, msg, e.Err)
	}
	return fmt.Sprintf("http %d: %s", e.Status, msg)
}

// Unwrap returns the wrapped error
func (e *StatusError) Unwrap() error {
	return e.Err
}

// WithStatus attaches an explicit HTTP status to err.
func WithStatus(status int, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

// Failure creates a StatusError without an underlying cause.
func Failure(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

// Classification is the outcome of classifying a failure once, at the edge.
type Classification struct {
	Status     int
	Cause      error
	Classified bool
}

// Classify derives the HTTP status for err.
//
// A *StatusError anywhere in the chain wins, then a coded *Error; anything
// else is unclassified and answers 500. The status is always within
// [100,599].
func Classify(err error) Classification {
	c := Classification{Status: http.StatusInternalServerError, Cause: err}

	var statusErr *StatusError
	var codedErr *Error
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		c.Status = statusErr.Status
		c.Classified = true
	case errors.As(err, &codedErr):
		c.Status = codedErr.HTTPStatusCode()
		c.Classified = true
	}

	if c.Status < 100 || c.Status > 599 {
		c.Status = http.StatusInternalServerError
	}
	return c
}

// StatusCode is a shorthand for Classify(err).Status.
func StatusCode(err error) int {
	return Classify(err).Status
}

// IsServerError reports whether status is in the 5xx range.
func IsServerError(status int) bool {
	return status >= 500 && status <= 599
}
