package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/vision-portal/internal/logger"
)

func TestDetect(t *testing.T) {
	var gotReq InferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/inference", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := InferenceResponse{
			BoundingBoxes: []BoundingBox{
				{X1: 10, Y1: 20, X2: 100, Y2: 200, Confidence: 0.9, ClassName: "pistol"},
			},
			DetectionCount:  1,
			InferenceTimeMs: 12.5,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		ServiceURL:          srv.URL,
		ConfidenceThreshold: 0.3,
	}, logger.NewNopLogger())

	resp, err := client.Detect(context.Background(), []byte("fakeimage"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.DetectionCount)
	assert.Equal(t, "pistol", resp.BoundingBoxes[0].ClassName)

	// The configured threshold travels with the request
	require.NotNil(t, gotReq.ConfidenceThreshold)
	assert.Equal(t, 0.3, *gotReq.ConfidenceThreshold)
	assert.NotEmpty(t, gotReq.Image)
}

func TestDetectServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{ServiceURL: srv.URL}, logger.NewNopLogger())

	_, err := client.Detect(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDetectUnreachable(t *testing.T) {
	client := NewClient(ClientConfig{ServiceURL: "http://127.0.0.1:1"}, logger.NewNopLogger())
	_, err := client.Detect(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health/ready", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{ServiceURL: srv.URL}, logger.NewNopLogger())
	assert.False(t, client.Ready())

	require.NoError(t, client.HealthCheck(context.Background()))
	assert.True(t, client.Ready())
}

func TestHealthCheckFailure(t *testing.T) {
	client := NewClient(ClientConfig{ServiceURL: "http://127.0.0.1:1"}, logger.NewNopLogger())

	err := client.HealthCheck(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, client.Ready())
}
