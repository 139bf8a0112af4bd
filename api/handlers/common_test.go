package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapErrorCodeToHTTPStatus(types.ErrInvalidInput))
	assert.Equal(t, http.StatusServiceUnavailable, mapErrorCodeToHTTPStatus(types.ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusBadGateway, mapErrorCodeToHTTPStatus(types.ErrMalformedPlan))
	assert.Equal(t, http.StatusBadGateway, mapErrorCodeToHTTPStatus(types.ErrMalformedResponse))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus(types.ErrSessionUpdateFailure))
}

func TestWriteError_ExplicitStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	err := types.NewError(types.ErrInvalidInput, "nope").WithHTTPStatus(http.StatusMethodNotAllowed)

	WriteError(rec, err, zap.NewNop())

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWriteFailure_WrapsPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteFailure(rec, errors.New("boom"), zap.NewNop())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
	assert.Contains(t, rec.Body.String(), string(types.ErrUpstreamUnavailable))
}

func TestWriteFailure_PreservesStructuredErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := types.NewError(types.ErrMalformedPlan, "missing resolved_question")

	WriteFailure(rec, wrapped, zap.NewNop())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), string(types.ErrMalformedPlan))
}

func TestResponseWriter_CapturesFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusTeapot, rw.StatusCode)
}
