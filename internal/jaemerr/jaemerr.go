// Package jaemerr implements the error taxonomy used by the
// message-delivery request router. The user-discovery router writes its
// own integer-coded error bodies and does not use this package.
package jaemerr

import (
	"fmt"
	"net/http"
)

// Code identifies which of the five taxonomy members an Error belongs to.
type Code string

const (
	CodeMalformedRequest Code = "malformed_request"
	CodeAuthFailure      Code = "auth_failure"
	CodeStateConflict    Code = "state_conflict"
	CodeNotFound         Code = "not_found"
	CodeStorageFailure   Code = "storage_failure"
)

// Error is the structured error type every mde/httpapi handler converts
// internal failures into, exactly once, at the HTTP boundary.
type Error struct {
	Code    Code
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Malformed builds a 400 malformed_request error.
func Malformed(message string, cause error) *Error {
	return &Error{Code: CodeMalformedRequest, Status: http.StatusBadRequest, Message: message, Cause: cause}
}

// AuthFailure builds a 403 auth_failure error.
func AuthFailure(message string, cause error) *Error {
	return &Error{Code: CodeAuthFailure, Status: http.StatusForbidden, Message: message, Cause: cause}
}

// Conflict builds a 409 state_conflict error.
func Conflict(message string, cause error) *Error {
	return &Error{Code: CodeStateConflict, Status: http.StatusConflict, Message: message, Cause: cause}
}

// NotFound builds a 404 not_found error.
func NotFound(message string, cause error) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message, Cause: cause}
}

// Storage builds a 500 storage_failure error.
func Storage(message string, cause error) *Error {
	return &Error{Code: CodeStorageFailure, Status: http.StatusInternalServerError, Message: message, Cause: cause}
}
