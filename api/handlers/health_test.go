package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
}

func TestHealthHandler_ReadyAllChecksPass(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.RegisterCheck(CheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error { return nil }})
	h.RegisterCheck(CheckFunc{CheckName: "qdrant", Fn: func(ctx context.Context) error { return nil }})

	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "pass", status.Checks["redis"].Status)
	assert.Equal(t, "pass", status.Checks["qdrant"].Status)
}

func TestHealthHandler_ReadyFailingCheck(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.RegisterCheck(CheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error { return nil }})
	h.RegisterCheck(CheckFunc{CheckName: "qdrant", Fn: func(ctx context.Context) error {
		return errors.New("connection refused")
	}})

	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "pass", status.Checks["redis"].Status)
	assert.Equal(t, "fail", status.Checks["qdrant"].Status)
	assert.Contains(t, status.Checks["qdrant"].Message, "connection refused")
}
