// Package domainerrors defines the coded error type services return to
// transports. Codes are stable strings; transports map them to status codes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation    Code = "validation_error"
	CodeBadRequest    Code = "bad_request"
	CodeInvalidInput  Code = "invalid_input"
	CodeNotFound      Code = "not_found"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeConflict      Code = "conflict"
	CodeRuleViolation Code = "rule_violation"
	CodeInvalidState  Code = "invalid_state"
	CodeTimeout       Code = "timeout"
	CodeInternal      Code = "internal_error"

	// CodeInvariantViolation is raised by model constructors. Services convert
	// it to CodeValidation before it reaches a transport.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a domain error carrying a code, a client-safe message, optional
// field-level messages and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap builds an Error around cause. A nil cause yields a plain New.
func Wrap(cause error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// WithFields builds a validation-style error carrying field messages.
func WithFields(code Code, msg string, fields map[string][]string) error {
	return &Error{Code: code, Message: msg, Fields: fields}
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// Message returns the client-safe message of the outermost domain error, or
// err.Error() for foreign errors.
func Message(err error) string {
	if de, ok := As(err); ok {
		return de.Message
	}
	return err.Error()
}

// Fields returns the field messages attached to err, merged across the chain.
func Fields(err error) map[string][]string {
	out := map[string][]string{}
	for err != nil {
		if de, ok := err.(*Error); ok {
			for k, v := range de.Fields {
				out[k] = append(out[k], v...)
			}
		}
		err = errors.Unwrap(err)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FieldNames returns the sorted field names of err's field messages.
func FieldNames(err error) []string {
	fields := Fields(err)
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HTTPStatus maps a code to the HTTP status used in responses.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeRuleViolation, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
