package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConnection represents an unreachable graph store
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeQuery represents a query the graph store rejected or failed
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeValidation represents malformed caller input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTag represents a tag that is not a safe label identifier
	ErrorTypeTag ErrorType = "tag"
	// ErrorTypeNotFound represents a uid that does not resolve
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTypeMismatch represents an endpoint of the wrong entity kind
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType returns the category of the error
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph store errors

// ConnectionError is returned when a session to the graph store cannot be used
type ConnectionError struct {
	*BaseError
}

func NewConnectionError(err error) *ConnectionError {
	return &ConnectionError{
		BaseError: NewBaseError(ErrorTypeConnection, "graph store unreachable", err),
	}
}

// QueryError is returned when the graph store rejects or fails a query
type QueryError struct {
	*BaseError
	Query string
}

func NewQueryError(query string, err error) *QueryError {
	return &QueryError{
		BaseError: NewBaseError(ErrorTypeQuery, fmt.Sprintf("query failed: %s", summarizeQuery(query)), err),
		Query:     query,
	}
}

// Input errors

// ValidationError is returned when a required field is missing or a value is malformed
type ValidationError struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid field %q: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// InvalidTagError is returned when a tag cannot be used as a graph label
type InvalidTagError struct {
	*BaseError
	Tag    string
	Reason string
}

func NewInvalidTagError(tag, reason string) *InvalidTagError {
	return &InvalidTagError{
		BaseError: NewBaseError(ErrorTypeTag, fmt.Sprintf("invalid tag %q: %s", tag, reason), nil),
		Tag:       tag,
		Reason:    reason,
	}
}

// Lookup errors

// NotFoundError is returned when a uid does not resolve to an entity of the required kind
type NotFoundError struct {
	*BaseError
	Kind string
	UID  string
}

func NewNotFoundError(kind, uid string) *NotFoundError {
	msg := fmt.Sprintf("entity not found: %s", uid)
	if kind != "" {
		msg = fmt.Sprintf("%s not found: %s", strings.ToLower(kind), uid)
	}
	return &NotFoundError{
		BaseError: NewBaseError(ErrorTypeNotFound, msg, nil),
		Kind:      kind,
		UID:       uid,
	}
}

// TypeMismatchError is returned when an endpoint exists but is the wrong entity kind
type TypeMismatchError struct {
	*BaseError
	UID      string
	Expected []string
	Actual   []string
}

func NewTypeMismatchError(uid string, expected, actual []string) *TypeMismatchError {
	return &TypeMismatchError{
		BaseError: NewBaseError(ErrorTypeTypeMismatch,
			fmt.Sprintf("entity %s has labels %v, expected one of %v", uid, actual, expected), nil),
		UID:      uid,
		Expected: expected,
		Actual:   actual,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typed interface {
	ErrorType() ErrorType
}

// TypeOf returns the category of the first categorized error in the chain
func TypeOf(err error) (ErrorType, bool) {
	var t typed
	if stderrors.As(err, &t) {
		return t.ErrorType(), true
	}
	return "", false
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsRetryable checks if an error is retryable by the caller.
// Nothing in this module retries on its own.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeConnection)
}

func summarizeQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if r := []rune(q); len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return q
}
