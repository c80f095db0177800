// Package apperror defines the closed set of failure kinds raised below the
// HTTP boundary. Handlers translate them to responses in exactly one place.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP error mapper.
type Kind int

const (
	// Unclassified is the zero value so that a bare Error maps to 500.
	Unclassified Kind = iota
	NotFound
	AlreadyExists
	ValidationFailure
	InvalidInput
	ConflictingState
	MalformedRequest
	InvalidParameter
	StorageConstraintViolation
	RouteNotFound
	MethodNotAllowed
	RateLimited
)

var kindNames = map[Kind]string{
	Unclassified:               "unclassified",
	NotFound:                   "not_found",
	AlreadyExists:              "already_exists",
	ValidationFailure:          "validation_failure",
	InvalidInput:               "invalid_input",
	ConflictingState:           "conflicting_state",
	MalformedRequest:           "malformed_request",
	InvalidParameter:           "invalid_parameter",
	StorageConstraintViolation: "storage_constraint_violation",
	RouteNotFound:              "route_not_found",
	MethodNotAllowed:           "method_not_allowed",
	RateLimited:                "rate_limited",
}

// String returns a stable snake_case label, used for metrics and logs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unclassified"
}

// Error is the single error type raised by services and validation.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field messages for ValidationFailure.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf returns an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind that wraps cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation returns a ValidationFailure carrying per-field messages.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: ValidationFailure, Message: msg, Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or Unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unclassified
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
