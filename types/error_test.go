package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrInvalidInput, "question cannot be empty")
	assert.Equal(t, "[INVALID_INPUT] question cannot be empty", err.Error())

	wrapped := NewError(ErrUpstreamUnavailable, "planner call failed").
		WithCause(errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "UPSTREAM_UNAVAILABLE")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewError(ErrUpstreamUnavailable, "evaluator call failed").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
}

func TestGetErrorCode(t *testing.T) {
	err := NewError(ErrMalformedPlan, "missing resolved_question")
	assert.Equal(t, ErrMalformedPlan, GetErrorCode(err))

	// Wrapped in a plain fmt error.
	wrapped := fmt.Errorf("turn failed: %w", err)
	assert.Equal(t, ErrMalformedPlan, GetErrorCode(wrapped))

	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	retryable := NewError(ErrUpstreamUnavailable, "503 from LLM").WithRetryable(true)
	assert.True(t, IsRetryable(retryable))

	fatal := NewError(ErrMalformedPlan, "bad plan")
	assert.False(t, IsRetryable(fatal))
	assert.False(t, IsRetryable(errors.New("plain")))
}
