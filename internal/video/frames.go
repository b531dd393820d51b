package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// framePattern is the numbered name pattern for extracted and annotated
// frames. Numbering keeps frames in stream order across extract and encode.
const framePattern = "frame_%06d.jpg"

// ExtractFrames dumps every frame of the source video as numbered JPEGs
// into dir and returns the frame count. End of stream is normal
// termination, not an error.
func (f *FFmpeg) ExtractFrames(ctx context.Context, src, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create frames directory: %w", err)
	}

	args := []string{
		"-hide_banner",
		"-i", src,
		"-qscale:v", "2",
		filepath.Join(dir, framePattern),
	}

	output, err := f.run(ctx, f.ffmpegPath, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, strings.TrimSpace(string(output)), err)
	}

	frames, err := ListFrames(dir)
	if err != nil {
		return 0, err
	}

	f.logger.Debug("Extracted frames", "source", src, "count", len(frames))
	return len(frames), nil
}

// ListFrames returns the frame files in dir sorted in stream order
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	frames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		frames = append(frames, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(frames)
	return frames, nil
}
