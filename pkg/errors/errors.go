package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes raised by console handlers and the stores behind them
const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeMethodNotAllowed  ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Session errors
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeTokenInvalid   ErrorCode = "TOKEN_INVALID"

	// Realm errors
	ErrCodeRealmNotFound ErrorCode = "REALM_NOT_FOUND"
	ErrCodeRealmDisabled ErrorCode = "REALM_DISABLED"

	// Client errors
	ErrCodeClientNotFound     ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodeClientDisabled     ErrorCode = "CLIENT_DISABLED"
	ErrCodeUnsupportedGrant   ErrorCode = "UNSUPPORTED_GRANT"
	ErrCodeDirectGrantsOnly   ErrorCode = "DIRECT_GRANTS_ONLY"
	ErrCodeClientRealmMissing ErrorCode = "CLIENT_REALM_MISSING"

	// Theme errors
	ErrCodeThemeNotFound    ErrorCode = "THEME_NOT_FOUND"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"

	// Validation errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the HTTP status code this error maps to
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns ErrCodeInternal if the error is not a structured Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidInput, ErrCodeValidationFailed, ErrCodeMissingRequired,
		ErrCodeUnsupportedGrant, ErrCodeDirectGrantsOnly:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeUnauthorized, ErrCodeSessionExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized

	// 403 Forbidden
	case ErrCodeForbidden, ErrCodeRealmDisabled, ErrCodeClientDisabled:
		return http.StatusForbidden

	// 404 Not Found
	case ErrCodeNotFound, ErrCodeRealmNotFound, ErrCodeClientNotFound:
		return http.StatusNotFound

	// 405 Method Not Allowed
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed

	// 409 Conflict
	case ErrCodeConflict, ErrCodeAlreadyExists:
		return http.StatusConflict

	// 429 Too Many Requests
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case ErrCodeTimeout:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	case ErrCodeInternal, ErrCodeThemeNotFound, ErrCodeTemplateNotFound, ErrCodeClientRealmMissing:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// AlreadyExists creates an "already exists" error
func AlreadyExists(resourceType, identifier string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s already exists: %s", resourceType, identifier)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Forbidden creates a "forbidden" error
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
