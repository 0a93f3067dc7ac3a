// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// Services return these errors (possibly wrapped with fmt.Errorf("...: %w"));
// handlers translate them to HTTP status codes with errors.Is. Anything that
// is not an *AppError is treated as an internal failure and its detail is
// never shown to the client.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error    // actual error
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Fields  []string // Optional: every field involved, for multi-field failures
	Details any      // Optional: structured payload returned to the client
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// BadRequest reports a request whose shape is wrong (missing fields,
// undecodable body). HTTP handlers map this to 400.
func BadRequest(message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationFailedWith is ValidationFailed carrying a structured result that
// the handler returns verbatim, so every failing category reaches the client.
func ValidationFailedWith(message string, details any) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Details: details,
	}
}

// InvalidFields is ValidationFailed for several malformed fields at once,
// e.g. "Invalid username, email".
func InvalidFields(fields ...string) *AppError {
	var field string
	if len(fields) == 1 {
		field = fields[0]
	}
	e := ValidationFailed(field, "Invalid "+strings.Join(fields, ", "))
	e.Fields = fields
	return e
}

// Unauthorized is used for every authentication failure. The message is kept
// generic on purpose: callers must not be able to tell an unknown identity
// from a wrong password.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldConflict reports one or more unique fields already owned by another
// record, e.g. "username, email already taken".
func FieldConflict(fields ...string) *AppError {
	e := &AppError{
		Err:     ErrConflict,
		Message: strings.Join(fields, ", ") + " already taken",
		Fields:  fields,
	}
	if len(fields) == 1 {
		e.Field = fields[0]
	}
	return e
}
