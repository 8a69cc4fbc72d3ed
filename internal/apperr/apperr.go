// Package apperr defines the typed application errors the workflow layer
// returns. Every error carries the HTTP status the gateway should answer
// with; the gateway never inspects error text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeForbidden  = "FORBIDDEN"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
)

type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: msg}
}

// Conflict is an invariant violation (double rating, wrong-state
// transition). Answered with 400, matching the rest of the API's
// precondition failures.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusBadRequest, Message: msg}
}

func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: msg}
}

// From unwraps err into an *Error, falling back to a generic internal error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error")
}

func Is(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
