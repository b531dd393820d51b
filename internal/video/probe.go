package video

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSourceUnreadable is returned when a media source cannot be opened
var ErrSourceUnreadable = errors.New("source file is unreadable")

// ProbeInfo describes a video stream as reported by ffprobe
type ProbeInfo struct {
	Width  int
	Height int
	FPS    float64
}

// Probe inspects the first video stream of the file at path
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	}

	output, err := f.run(ctx, f.ffprobePath, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, strings.TrimSpace(string(output)), err)
	}

	info, err := parseProbeOutput(string(output))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	f.logger.Debug("Probed video source",
		"path", path,
		"width", info.Width,
		"height", info.Height,
		"fps", info.FPS,
	)

	return info, nil
}

// parseProbeOutput parses "width,height,num/den" csv output
func parseProbeOutput(output string) (*ProbeInfo, error) {
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(output), "\n")[0])
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return nil, fmt.Errorf("unexpected ffprobe output %q", line)
	}

	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("bad width in %q", line)
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("bad height in %q", line)
	}

	return &ProbeInfo{
		Width:  width,
		Height: height,
		FPS:    parseFrameRate(strings.TrimSpace(parts[2])),
	}, nil
}

// parseFrameRate parses an r_frame_rate fraction like "30000/1001".
// Unparsable or degenerate rates come back as 0; the encoder substitutes
// its default.
func parseFrameRate(raw string) float64 {
	if raw == "" {
		return 0
	}

	num, den := raw, "1"
	if idx := strings.Index(raw, "/"); idx >= 0 {
		num, den = raw[:idx], raw[idx+1:]
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}

	return n / d
}
