package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vzahanych/vision-portal/internal/logger"
)

// ErrModelUnavailable is returned when the detection service cannot be
// reached or never passed its health probe.
var ErrModelUnavailable = errors.New("object detection model is not available")

// Detector runs object detection over one encoded image
type Detector interface {
	Detect(ctx context.Context, image []byte) (*InferenceResponse, error)
	Ready() bool
}

// Client is an HTTP client for the external detection service. The service
// exposes the pretrained model as a black box; no inference happens here.
type Client struct {
	serviceURL        string
	httpClient        *http.Client
	logger            *logger.Logger
	defaultConfidence float64
	ready             atomic.Bool
}

// ClientConfig contains configuration for the detection client
type ClientConfig struct {
	ServiceURL          string
	Timeout             time.Duration
	ConfidenceThreshold float64
}

// NewClient creates a new detection service client
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		serviceURL: config.ServiceURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:            log,
		defaultConfidence: config.ConfidenceThreshold,
	}
}

// Detect performs inference on a single encoded image. Failures are not
// retried; the caller's whole request fails.
func (c *Client) Detect(ctx context.Context, image []byte) (*InferenceResponse, error) {
	req := InferenceRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}
	if c.defaultConfidence > 0 {
		req.ConfidenceThreshold = &c.defaultConfidence
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/inference", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Detection service returned error",
			"status", resp.StatusCode,
			"response", string(body),
		)
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, string(body))
	}

	var inferenceResp InferenceResponse
	if err := json.Unmarshal(body, &inferenceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug("Inference completed",
		"detection_count", inferenceResp.DetectionCount,
		"inference_time_ms", inferenceResp.InferenceTimeMs,
		"request_duration_ms", time.Since(startTime).Milliseconds(),
	)

	return &inferenceResp, nil
}

// HealthCheck probes the detection service. A successful probe marks the
// client ready; processing requests fail fast until then.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health/ready", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check status %d", ErrModelUnavailable, resp.StatusCode)
	}

	c.ready.Store(true)
	return nil
}

// Ready reports whether the service has ever passed its health probe
func (c *Client) Ready() bool {
	return c.ready.Load()
}
