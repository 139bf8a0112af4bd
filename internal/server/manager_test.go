package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestManager_StartAndServe(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	m := NewManager(handler, testConfig(), zap.NewNop())

	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	resp, err := http.Get("http://" + m.Addr() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestManager_DoubleStart(t *testing.T) {
	m := NewManager(http.NotFoundHandler(), testConfig(), zap.NewNop())

	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	assert.Error(t, m.Start())
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager(http.NotFoundHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())

	assert.True(t, m.IsRunning())
	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	// Shutdown is idempotent, and a closed server cannot be restarted.
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Error(t, m.Start())
}
