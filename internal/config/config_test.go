package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(16<<20), cfg.Uploads.MaxSizeBytes)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "mp4"}, cfg.Uploads.AllowedExtensions)
	assert.Equal(t, 0.3, cfg.Detector.ConfidenceThreshold)
	assert.Equal(t, []string{"mpeg4", "libxvid", "msmpeg4v2", "wmv2"}, cfg.Encoding.CodecFallback)
	assert.Equal(t, float64(25), cfg.Encoding.DefaultFPS)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Contains(t, cfg.Storage.UploadsDir, "uploads")
	assert.Contains(t, cfg.Storage.OutputsDir, "outputs")
}

func TestLoadOverrides(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 127.0.0.1
  port: 8081
storage:
  data_dir: /tmp/portal
uploads:
  max_size_bytes: 1048576
  allowed_extensions: [png]
detector:
  service_url: http://detector:9090
  confidence_threshold: 0.5
encoding:
  codec_fallback: [libx264]
  target_codec: libx264
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/tmp/portal", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/tmp/portal", "uploads"), cfg.Storage.UploadsDir)
	assert.Equal(t, int64(1048576), cfg.Uploads.MaxSizeBytes)
	assert.Equal(t, []string{"png"}, cfg.Uploads.AllowedExtensions)
	assert.Equal(t, "http://detector:9090", cfg.Detector.ServiceURL)
	assert.Equal(t, 0.5, cfg.Detector.ConfidenceThreshold)
	assert.Equal(t, []string{"libx264"}, cfg.Encoding.CodecFallback)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	path := writeTempConfig(t, "detector:\n  confidence_threshold: 1.5\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "admin", cfg.Auth.BootstrapUser)
}
