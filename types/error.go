package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across docflow.
type ErrorCode string

const (
	// ErrInvalidInput marks an empty question or session ID. The turn is
	// aborted before any collaborator call.
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrUpstreamUnavailable marks a failed or timed-out collaborator call
	// (LLM endpoint, vector index, session store).
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// ErrMalformedPlan marks a planner payload missing required fields.
	// There is no safe default plan, so this is fatal for the turn.
	ErrMalformedPlan ErrorCode = "MALFORMED_PLAN"

	// ErrMalformedResponse marks a structurally invalid collaborator payload.
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// ErrSessionUpdateFailure marks a failed session-history write. Non-fatal;
	// logged and does not alter the turn's result.
	ErrSessionUpdateFailure ErrorCode = "SESSION_UPDATE_FAILURE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
