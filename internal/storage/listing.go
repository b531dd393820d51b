package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OutputFile describes one processed result in a user's output directory
type OutputFile struct {
	Name string    `json:"name"`
	Kind MediaKind `json:"type"`
	Size int64     `json:"-"`
}

// ListOutputs enumerates a user's processed results. Metadata sidecars and
// non-regular files are excluded. Results are sorted by filename so the
// listing order is deterministic (directory enumeration order is not).
func (l *Layout) ListOutputs(username string) ([]OutputFile, error) {
	_, outputDir, err := l.UserDirs(username)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	files := make([]OutputFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			// Metadata sidecar, not a media result
			continue
		}

		info, err := entry.Info()
		if err != nil {
			l.logger.Warn("Failed to stat output file", "path", filepath.Join(outputDir, name), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, OutputFile{
			Name: name,
			Kind: KindOf(name),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
