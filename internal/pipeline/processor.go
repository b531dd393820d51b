package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vzahanych/vision-portal/internal/detect"
	"github.com/vzahanych/vision-portal/internal/logger"
	"github.com/vzahanych/vision-portal/internal/storage"
	"github.com/vzahanych/vision-portal/internal/video"
)

var (
	// ErrNotFound is returned when the requested source file is absent
	ErrNotFound = errors.New("file not found")
	// ErrWriteFailed is returned when a result cannot be materialized
	ErrWriteFailed = errors.New("failed to write output")
)

// FrameSource reads video sources frame by frame
type FrameSource interface {
	Probe(ctx context.Context, path string) (*video.ProbeInfo, error)
	ExtractFrames(ctx context.Context, src, dir string) (int, error)
}

// FrameEncoder re-encodes an annotated frame sequence into a container
type FrameEncoder interface {
	EncodeFrames(ctx context.Context, framesDir string, fps float64, outputPath string) error
}

// Result summarizes one processing run
type Result struct {
	Filename       string
	FileType       storage.MediaKind
	DetectionCount int
	FrameCount     int
	Message        string
	Cached         bool
	NoDetections   bool
}

// Entry describes one processed file for listings
type Entry struct {
	Name       string
	Kind       storage.MediaKind
	Detections int
	Frames     int
}

// Processor drives the upload → process → retrieve lifecycle. Processing
// is synchronous: the request is held open for the full run. A per-user
// lock serializes runs for the same user so concurrent requests cannot race
// on the same output path and sidecar.
type Processor struct {
	layout   *storage.Layout
	detector detect.Detector
	frames   FrameSource
	encoder  FrameEncoder
	logger   *logger.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewProcessor creates a processor over its collaborators
func NewProcessor(
	layout *storage.Layout,
	detector detect.Detector,
	frames FrameSource,
	encoder FrameEncoder,
	log *logger.Logger,
) *Processor {
	return &Processor{
		layout:    layout,
		detector:  detector,
		frames:    frames,
		encoder:   encoder,
		logger:    log,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// pathError maps a failed path resolution to the right error class: a name
// that sanitizes to nothing is a missing file, a filesystem failure is not.
func pathError(err error) error {
	if errors.Is(err, storage.ErrEmptyFilename) {
		return ErrNotFound
	}
	return err
}

// lockUser returns the mutex serializing processing for one user
func (p *Processor) lockUser(username string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.userLocks[username]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[username] = lock
	}
	return lock
}

// Process runs detection over an uploaded file and materializes the
// annotated result.
//
// Cache policy, made explicit: if a result for this filename already
// exists, its sidecar summary is returned and detection is not rerun.
// Otherwise every prior result for the user is cleared before the new one
// is produced — at most one ProcessedResult per user exists at a time.
func (p *Processor) Process(ctx context.Context, username, filename string) (*Result, error) {
	if !p.detector.Ready() {
		return nil, detect.ErrModelUnavailable
	}

	lock := p.lockUser(username)
	lock.Lock()
	defer lock.Unlock()

	srcPath, err := p.layout.UploadPath(username, filename)
	if err != nil {
		return nil, pathError(err)
	}
	outputPath, err := p.layout.OutputPath(username, filename)
	if err != nil {
		return nil, pathError(err)
	}
	safeName := filepath.Base(outputPath)

	if _, err := os.Stat(srcPath); err != nil {
		return nil, ErrNotFound
	}

	// Cached result: return the stored summary without rerunning detection
	if _, err := os.Stat(outputPath); err == nil {
		md := readMetadata(outputPath)
		p.logger.Info("Returning cached result", "username", username, "filename", safeName)
		return &Result{
			Filename:       safeName,
			FileType:       storage.KindOf(safeName),
			DetectionCount: md.DetectionCount,
			FrameCount:     md.FrameCount,
			Message:        "File has already been processed.",
			Cached:         true,
		}, nil
	}

	// New run: all prior results for this user are cleared first
	if err := p.layout.ClearOutputs(username); err != nil {
		p.logger.Warn("Error clearing previous results", "username", username, "error", err)
	}

	if storage.KindOf(safeName) == storage.KindVideo {
		return p.processVideo(ctx, username, srcPath, outputPath, safeName)
	}
	return p.processImage(ctx, srcPath, outputPath, safeName)
}

// processImage runs one detection pass over a still image
func (p *Processor) processImage(ctx context.Context, srcPath, outputPath, name string) (*Result, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, ErrNotFound
	}

	p.logger.Info("Running image inference", "source", srcPath)

	resp, err := p.detector.Detect(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	if len(resp.BoundingBoxes) == 0 {
		return &Result{
			FileType:     storage.KindImage,
			Message:      "No objects detected in the image.",
			NoDetections: true,
		}, nil
	}

	img, err := detect.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrSourceUnreadable, err)
	}

	annotated := detect.Annotate(img, resp.BoundingBoxes)
	encoded, err := detect.EncodeImage(annotated, storage.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.WriteFile(outputPath, encoded, 0644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	md := Metadata{DetectionCount: len(resp.BoundingBoxes), FrameCount: 1}
	if err := writeMetadata(outputPath, md); err != nil {
		// Advisory record; the annotated image is already in place
		p.logger.Warn("Failed to write metadata", "path", outputPath, "error", err)
	}

	p.logger.Info("Annotated image saved", "output", outputPath, "detections", md.DetectionCount)

	return &Result{
		Filename:       name,
		FileType:       storage.KindImage,
		DetectionCount: md.DetectionCount,
		FrameCount:     1,
		Message:        fmt.Sprintf("Detection complete! Found %d object(s).", md.DetectionCount),
	}, nil
}

// processVideo runs detection over every frame and re-encodes the result
func (p *Processor) processVideo(ctx context.Context, username, srcPath, outputPath, name string) (*Result, error) {
	info, err := p.frames.Probe(ctx, srcPath)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Running video inference", "source", srcPath, "fps", info.FPS)

	workDir, err := os.MkdirTemp("", "vision-portal-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer os.RemoveAll(workDir)

	rawDir := filepath.Join(workDir, "raw")
	annotatedDir := filepath.Join(workDir, "annotated")
	if err := os.MkdirAll(annotatedDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	frameCount, err := p.frames.ExtractFrames(ctx, srcPath, rawDir)
	if err != nil {
		return nil, err
	}

	frames, err := video.ListFrames(rawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	detectionCount := 0
	for _, framePath := range frames {
		frameData, err := os.ReadFile(framePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}

		resp, err := p.detector.Detect(ctx, frameData)
		if err != nil {
			return nil, fmt.Errorf("detection failed: %w", err)
		}
		detectionCount += len(resp.BoundingBoxes)

		img, err := detect.DecodeImage(frameData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", video.ErrSourceUnreadable, err)
		}
		annotated := detect.Annotate(img, resp.BoundingBoxes)
		encoded, err := detect.EncodeImage(annotated, "jpg")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}

		outFrame := filepath.Join(annotatedDir, filepath.Base(framePath))
		if err := os.WriteFile(outFrame, encoded, 0644); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}

	if err := p.encoder.EncodeFrames(ctx, annotatedDir, info.FPS, outputPath); err != nil {
		return nil, err
	}

	md := Metadata{DetectionCount: detectionCount, FrameCount: frameCount}
	if err := writeMetadata(outputPath, md); err != nil {
		p.logger.Warn("Failed to write metadata", "path", outputPath, "error", err)
	}

	p.logger.Info("Video processing complete",
		"username", username,
		"output", outputPath,
		"frames", frameCount,
		"detections", detectionCount,
	)

	return &Result{
		Filename:       name,
		FileType:       storage.KindVideo,
		DetectionCount: detectionCount,
		FrameCount:     frameCount,
		Message: fmt.Sprintf("Video processing complete! Found %d object(s) across %d frames.",
			detectionCount, frameCount),
	}, nil
}

// ListResults enumerates a user's processed files with their sidecar counts
func (p *Processor) ListResults(username string) ([]Entry, error) {
	files, err := p.layout.ListOutputs(username)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		outputPath, err := p.layout.OutputPath(username, f.Name)
		if err != nil {
			continue
		}
		md := readMetadata(outputPath)
		entries = append(entries, Entry{
			Name:       f.Name,
			Kind:       f.Kind,
			Detections: md.DetectionCount,
			Frames:     md.FrameCount,
		})
	}
	return entries, nil
}

// ClearResults deletes all of a user's uploads and outputs, best effort
func (p *Processor) ClearResults(username string) error {
	lock := p.lockUser(username)
	lock.Lock()
	defer lock.Unlock()
	return p.layout.ClearUser(username)
}
