package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/vision-portal/internal/config"
	"github.com/vzahanych/vision-portal/internal/logger"
)

func TestServerStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // random port

	server := NewServer(cfg, logger.NewNopLogger())
	require.Equal(t, "web-server", server.Name())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, server.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, server.Stop(stopCtx))
}

func TestStatusReportsRunningServer(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	server := NewServer(cfg, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, server.Start(ctx))

	statusOf := func() string {
		req, err := http.NewRequest(http.MethodGet, "/api/status", nil)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Status
	}

	assert.Equal(t, "healthy", statusOf())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, server.Stop(stopCtx))

	assert.Equal(t, "unhealthy", statusOf())
}

func TestStopWithoutStart(t *testing.T) {
	server := NewServer(config.Default(), logger.NewNopLogger())
	assert.NoError(t, server.Stop(context.Background()))
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, "/login", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	env.server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
