package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Detector  DetectorConfig  `yaml:"detector"`
	Encoding  EncodingConfig  `yaml:"encoding"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig contains per-user storage configuration
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	UploadsDir string `yaml:"uploads_dir"`
	OutputsDir string `yaml:"outputs_dir"`
}

// UploadsConfig contains upload validation configuration
type UploadsConfig struct {
	MaxSizeBytes      int64    `yaml:"max_size_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// DetectorConfig contains external detection service configuration
type DetectorConfig struct {
	ServiceURL          string        `yaml:"service_url"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
}

// EncodingConfig contains video re-encoding configuration
type EncodingConfig struct {
	// CodecFallback lists encoder codecs tried in order when writing the
	// intermediate container. The first one that opens wins.
	CodecFallback []string `yaml:"codec_fallback"`
	// TargetCodec is used for the final transcode into the mp4 container.
	TargetCodec string  `yaml:"target_codec"`
	DefaultFPS  float64 `yaml:"default_fps"`
}

// AuthConfig contains user and session configuration
type AuthConfig struct {
	DBPath        string        `yaml:"db_path"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	BootstrapUser string        `yaml:"bootstrap_user"`
	BootstrapPass string        `yaml:"bootstrap_pass"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, without
// reading a file. Used by tests and as a fallback.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"/etc/vision-portal/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// Return the first default if none found (will error later)
	return paths[0]
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = filepath.Join(c.Storage.DataDir, "uploads")
	}
	if c.Storage.OutputsDir == "" {
		c.Storage.OutputsDir = filepath.Join(c.Storage.DataDir, "outputs")
	}

	if c.Uploads.MaxSizeBytes == 0 {
		c.Uploads.MaxSizeBytes = 16 << 20 // 16 MiB
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		c.Uploads.AllowedExtensions = []string{"png", "jpg", "jpeg", "mp4"}
	}

	if c.Detector.ServiceURL == "" {
		c.Detector.ServiceURL = "http://localhost:8080"
	}
	if c.Detector.ConfidenceThreshold == 0 {
		c.Detector.ConfidenceThreshold = 0.3
	}
	if c.Detector.Timeout == 0 {
		c.Detector.Timeout = 30 * time.Second
	}

	if len(c.Encoding.CodecFallback) == 0 {
		c.Encoding.CodecFallback = []string{"mpeg4", "libxvid", "msmpeg4v2", "wmv2"}
	}
	if c.Encoding.TargetCodec == "" {
		c.Encoding.TargetCodec = "mpeg4"
	}
	if c.Encoding.DefaultFPS == 0 {
		c.Encoding.DefaultFPS = 25
	}

	if c.Auth.DBPath == "" {
		c.Auth.DBPath = filepath.Join(c.Storage.DataDir, "db", "portal.db")
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Auth.BootstrapUser == "" {
		c.Auth.BootstrapUser = "admin"
	}
}

// validate checks configuration values that cannot be defaulted away
func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Uploads.MaxSizeBytes < 0 {
		return fmt.Errorf("invalid max upload size: %d", c.Uploads.MaxSizeBytes)
	}
	if c.Detector.ConfidenceThreshold < 0 || c.Detector.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence threshold: %f", c.Detector.ConfidenceThreshold)
	}
	return nil
}
