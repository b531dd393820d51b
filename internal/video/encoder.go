package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vzahanych/vision-portal/internal/logger"
)

// ErrEncoderInitFailed is returned when no codec in the fallback list
// produces a writable stream.
var ErrEncoderInitFailed = errors.New("could not initialize video encoder with any available codec")

// Encoder re-encodes annotated frame sequences into a playable container.
// Codec support varies wildly between environments, so the encoder walks a
// fixed preference list and takes the first codec that opens; the result is
// then transcoded into the target container, falling back to the
// intermediate container if that second pass fails.
type Encoder struct {
	ffmpeg        *FFmpeg
	codecFallback []string
	targetCodec   string
	defaultFPS    float64
	logger        *logger.Logger
}

// EncoderConfig contains encoder configuration
type EncoderConfig struct {
	CodecFallback []string
	TargetCodec   string
	DefaultFPS    float64
}

// NewEncoder creates an encoder over the ffmpeg wrapper
func NewEncoder(ffmpeg *FFmpeg, cfg EncoderConfig, log *logger.Logger) *Encoder {
	if len(cfg.CodecFallback) == 0 {
		cfg.CodecFallback = []string{"mpeg4", "libxvid", "msmpeg4v2", "wmv2"}
	}
	if cfg.TargetCodec == "" {
		cfg.TargetCodec = "mpeg4"
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = 25
	}

	return &Encoder{
		ffmpeg:        ffmpeg,
		codecFallback: cfg.CodecFallback,
		targetCodec:   cfg.TargetCodec,
		defaultFPS:    cfg.DefaultFPS,
		logger:        log,
	}
}

// EncodeFrames encodes the numbered frame sequence in framesDir into
// outputPath. A non-positive source frame rate is replaced with the
// default.
func (e *Encoder) EncodeFrames(ctx context.Context, framesDir string, fps float64, outputPath string) error {
	if fps <= 0 {
		e.logger.Warn("Source reported non-positive frame rate, using default",
			"reported", fps,
			"default", e.defaultFPS,
		)
		fps = e.defaultFPS
	}

	intermediate := intermediatePath(outputPath)

	codec, err := e.writeIntermediate(ctx, framesDir, fps, intermediate)
	if err != nil {
		return err
	}

	e.logger.Info("Intermediate container written", "codec", codec, "path", intermediate)

	if err := e.transcode(ctx, intermediate, outputPath); err != nil {
		// Lenient degradation: a playable file in the fallback container
		// beats failing the whole request.
		e.logger.Warn("Transcode to target container failed, keeping intermediate",
			"error", err,
			"output", outputPath,
		)
		if renameErr := os.Rename(intermediate, outputPath); renameErr != nil {
			return fmt.Errorf("failed to move intermediate into place: %w", renameErr)
		}
		return nil
	}

	if err := os.Remove(intermediate); err != nil {
		e.logger.Warn("Failed to remove intermediate file", "path", intermediate, "error", err)
	}
	return nil
}

// writeIntermediate tries each fallback codec in order, writing the frame
// sequence into a temporary AVI. The first codec that opens wins.
func (e *Encoder) writeIntermediate(ctx context.Context, framesDir string, fps float64, intermediate string) (string, error) {
	input := filepath.Join(framesDir, framePattern)

	for _, codec := range e.codecFallback {
		args := []string{
			"-hide_banner", "-y",
			"-framerate", formatFPS(fps),
			"-i", input,
			"-c:v", codec,
			intermediate,
		}

		output, err := e.ffmpeg.run(ctx, e.ffmpeg.ffmpegPath, args...)
		if err == nil {
			e.logger.Info("Opened encoder", "codec", codec)
			return codec, nil
		}

		e.logger.Warn("Codec failed to open",
			"codec", codec,
			"error", err,
			"output", truncate(string(output), 400),
		)
		// Drop any partial file before trying the next codec
		_ = os.Remove(intermediate)
	}

	// No partial output may survive a total encoder failure
	_ = os.Remove(intermediate)
	return "", ErrEncoderInitFailed
}

// transcode re-reads the intermediate container and writes the target one
func (e *Encoder) transcode(ctx context.Context, intermediate, outputPath string) error {
	args := []string{
		"-hide_banner", "-y",
		"-i", intermediate,
		"-c:v", e.targetCodec,
		outputPath,
	}

	output, err := e.ffmpeg.run(ctx, e.ffmpeg.ffmpegPath, args...)
	if err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("transcode failed: %s: %w", truncate(string(output), 400), err)
	}
	return nil
}

// intermediatePath derives the temporary AVI path next to the output file
func intermediatePath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	return filepath.Join(dir, "temp_"+base+".avi")
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
