package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	msg := "configuration validation failed:"
	for _, err := range e {
		msg += fmt.Sprintf("\n  - %s", err.Error())
	}
	return msg
}

// Validator is a function that validates configuration and returns errors
type Validator func() ValidationErrors

// Validate runs multiple validators and combines their errors
func Validate(validators ...Validator) error {
	var allErrors ValidationErrors

	for _, validator := range validators {
		if errs := validator(); len(errs) > 0 {
			allErrors = append(allErrors, errs...)
		}
	}

	if len(allErrors) > 0 {
		return allErrors
	}
	return nil
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// RequirePositive validates that an integer field is positive
func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be positive, got %d", value),
		}
	}
	return nil
}

// RequireValidPort validates that a port number is valid (1-65535)
func RequireValidPort(field string, value uint16) *ValidationError {
	if value == 0 {
		return &ValidationError{
			Field:   field,
			Message: "port must be between 1 and 65535",
		}
	}
	return nil
}

// RequireOneOf validates that a value is one of the allowed values
func RequireOneOf(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of %v, got %q", allowed, value),
	}
}

// RequireBasePath validates a URL path prefix: empty, or starting with "/"
// and not ending with one.
func RequireBasePath(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	if !strings.HasPrefix(value, "/") || (len(value) > 1 && strings.HasSuffix(value, "/")) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must start with / and not end with /, got %q", value),
		}
	}
	return nil
}

// CollectErrors is a helper to collect validation errors
// Returns nil if no errors, otherwise returns ValidationErrors
func CollectErrors(errors ...*ValidationError) ValidationErrors {
	var result ValidationErrors
	for _, err := range errors {
		if err != nil {
			result = append(result, *err)
		}
	}
	return result
}
