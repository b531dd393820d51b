package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vzahanych/vision-portal/internal/logger"
)

var (
	// ErrInvalidFileType is returned for filenames outside the allowed
	// extension set
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrFileTooLarge is returned when an upload exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFilename is returned when a filename sanitizes to nothing
	ErrEmptyFilename = errors.New("empty filename")
)

// MediaKind classifies a stored file by its extension
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Layout maps a username to its isolated upload and output directories.
// Every stored file is strictly partitioned by owning user directory;
// user-supplied filenames are sanitized before any path is built.
type Layout struct {
	uploadsRoot string
	outputsRoot string
	allowedExts map[string]bool
	logger      *logger.Logger
}

// NewLayout creates the layout manager and its root directories
func NewLayout(uploadsRoot, outputsRoot string, allowedExts []string, log *logger.Logger) (*Layout, error) {
	if err := os.MkdirAll(uploadsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	if err := os.MkdirAll(outputsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outputs root: %w", err)
	}

	exts := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		exts[strings.ToLower(ext)] = true
	}

	log.Info("Storage layout initialized",
		"uploads_root", uploadsRoot,
		"outputs_root", outputsRoot,
		"allowed_extensions", allowedExts,
	)

	return &Layout{
		uploadsRoot: uploadsRoot,
		outputsRoot: outputsRoot,
		allowedExts: exts,
		logger:      log,
	}, nil
}

// UserDirs returns (creating if absent) the upload and output directories
// for a user. Idempotent; fails only on underlying filesystem errors.
func (l *Layout) UserDirs(username string) (uploadDir, outputDir string, err error) {
	safe := SanitizeFilename(username)
	if safe == "" {
		return "", "", ErrEmptyFilename
	}

	uploadDir = filepath.Join(l.uploadsRoot, safe)
	outputDir = filepath.Join(l.outputsRoot, safe)

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	return uploadDir, outputDir, nil
}

// Ext returns the lowercased extension of a filename without the dot
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// KindOf classifies a filename as image or video by extension
func KindOf(filename string) MediaKind {
	if Ext(filename) == "mp4" {
		return KindVideo
	}
	return KindImage
}

// Allowed reports whether a filename's extension is in the allowed set.
// The check is case-insensitive.
func (l *Layout) Allowed(filename string) bool {
	ext := Ext(filename)
	return ext != "" && l.allowedExts[ext]
}

// SanitizeFilename strips path components and unsafe characters from a
// user-supplied name so it can never escape its directory.
func SanitizeFilename(name string) string {
	// Drop any directory part, regardless of separator convention
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, "/", "")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), ".")
	if cleaned == ".." || cleaned == "." {
		return ""
	}
	return cleaned
}

// UniqueName generates a collision-free stored name for an upload: a random
// token plus the original extension. Rejects disallowed extensions.
func (l *Layout) UniqueName(original string) (string, error) {
	safe := SanitizeFilename(original)
	if safe == "" {
		return "", ErrEmptyFilename
	}
	if !l.Allowed(safe) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileType, safe)
	}
	return uuid.New().String() + "." + Ext(safe), nil
}

// SaveUpload writes an upload stream into the user's upload directory under
// a freshly generated unique name and returns that name.
func (l *Layout) SaveUpload(username, original string, r io.Reader) (string, error) {
	name, err := l.UniqueName(original)
	if err != nil {
		return "", err
	}

	uploadDir, _, err := l.UserDirs(username)
	if err != nil {
		return "", err
	}

	path := filepath.Join(uploadDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	l.logger.Info("Upload saved", "username", username, "original", original, "stored", name)
	return name, nil
}

// UploadPath resolves a sanitized filename inside the user's upload directory
func (l *Layout) UploadPath(username, filename string) (string, error) {
	uploadDir, _, err := l.UserDirs(username)
	if err != nil {
		return "", err
	}
	safe := SanitizeFilename(filename)
	if safe == "" {
		return "", ErrEmptyFilename
	}
	return filepath.Join(uploadDir, safe), nil
}

// OutputPath resolves a sanitized filename inside the user's output directory
func (l *Layout) OutputPath(username, filename string) (string, error) {
	_, outputDir, err := l.UserDirs(username)
	if err != nil {
		return "", err
	}
	safe := SanitizeFilename(filename)
	if safe == "" {
		return "", ErrEmptyFilename
	}
	return filepath.Join(outputDir, safe), nil
}

// ClearUser deletes every regular file in the user's upload and output
// directories. Non-recursive; the directories themselves survive. Errors on
// individual files are logged and do not abort remaining deletions; the
// first error is returned for reporting.
func (l *Layout) ClearUser(username string) error {
	uploadDir, outputDir, err := l.UserDirs(username)
	if err != nil {
		return err
	}

	var firstErr error
	for _, dir := range []string{outputDir, uploadDir} {
		if err := l.clearDir(dir); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ClearOutputs deletes every regular file in the user's output directory only
func (l *Layout) ClearOutputs(username string) error {
	_, outputDir, err := l.UserDirs(username)
	if err != nil {
		return err
	}
	return l.clearDir(outputDir)
}

func (l *Layout) clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			l.logger.Warn("Failed to delete file", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
