package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is the sidecar record stored next to each processed result.
// It is advisory: the media file stays valid without it.
type Metadata struct {
	DetectionCount int `json:"detection_count"`
	FrameCount     int `json:"frame_count"`
}

// sidecarPath derives the metadata path for an output file
func sidecarPath(outputPath string) string {
	return outputPath + ".json"
}

// writeMetadata persists the sidecar record
func writeMetadata(outputPath string, md Metadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(sidecarPath(outputPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// readMetadata reads the sidecar record. Missing or unparsable sidecars
// read as zero counts rather than failing.
func readMetadata(outputPath string) Metadata {
	var md Metadata
	data, err := os.ReadFile(sidecarPath(outputPath))
	if err != nil {
		return md
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}
	}
	return md
}
