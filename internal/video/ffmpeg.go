package video

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vzahanych/vision-portal/internal/logger"
)

// runFunc executes an external command and returns its combined output.
// Injected so tests can run without ffmpeg installed.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg wraps the ffmpeg and ffprobe binaries
type FFmpeg struct {
	logger      *logger.Logger
	ffmpegPath  string
	ffprobePath string
	run         runFunc
}

// NewFFmpeg creates a new wrapper, locating the binaries
func NewFFmpeg(log *logger.Logger) (*FFmpeg, error) {
	f := &FFmpeg{
		logger: log,
		run:    execRun,
	}

	ffmpegPath, err := detectBinary("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	f.ffmpegPath = ffmpegPath

	ffprobePath, err := detectBinary("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	f.ffprobePath = ffprobePath

	log.Info("FFmpeg wrapper initialized", "ffmpeg", ffmpegPath, "ffprobe", ffprobePath)
	return f, nil
}

// execRun runs a command and returns combined stdout/stderr
func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// detectBinary finds an executable in PATH or common locations
func detectBinary(name string) (string, error) {
	paths := []string{name, "/usr/bin/" + name, "/usr/local/bin/" + name}

	for _, path := range paths {
		cmd := exec.Command(path, "-version")
		if err := cmd.Run(); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in PATH or common locations", name)
}

// Version returns the ffmpeg version line
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	output, err := f.run(ctx, f.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}
