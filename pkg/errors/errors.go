package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed gateway error with HTTP awareness.
type Error struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Status         int    `json:"status"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	Err            error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so predefined values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrTransport       = New("TRANSPORT_FAILURE", http.StatusBadGateway, "professor backend request failed")
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "no professor with the given name")
	ErrInvalidData     = New("INVALID_DATA", http.StatusBadGateway, "empty or invalid professor list")
	ErrRetrieval       = New("RETRIEVAL_FAILURE", http.StatusBadGateway, "failed to retrieve professor")
	ErrSynchronization = New("SYNCHRONIZATION_FAILURE", http.StatusBadGateway, "failed to synchronize professors")
	ErrUnauthorized    = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WrapAs wraps err using the code, status and message of a predefined error.
func WrapAs(err error, kind *Error) *Error {
	wrapped := Wrap(err, kind.Code, kind.Status, kind.Message)
	var inner *Error
	if errors.As(err, &inner) {
		wrapped.UpstreamStatus = inner.UpstreamStatus
	}
	return wrapped
}
