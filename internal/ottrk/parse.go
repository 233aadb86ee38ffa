package ottrk

import (
	"encoding/json"
	"fmt"
	"os"
)

// TrackedDetectionRow is one decoded entry of an OTTRK artifact's
// data.detections array, in the shape Export writes it.
type TrackedDetectionRow struct {
	Class         string  `json:"class"`
	Conf          float32 `json:"conf"`
	X             float32 `json:"x"`
	Y             float32 `json:"y"`
	W             float32 `json:"w"`
	H             float32 `json:"h"`
	Frame         int     `json:"frame"`
	Occurrence    float64 `json:"occurrence"`
	InputFilePath string  `json:"input_file_path"`
	TrackId       int64   `json:"track_id"`
	Finished      bool    `json:"finished"`
	Discarded     bool    `json:"discarded"`
}

// Document is a parsed OTTRK artifact.
type Document struct {
	Metadata   map[string]any
	Detections []TrackedDetectionRow
}

// Parse reads and decodes an OTTRK artifact at path.
func Parse(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("ottrk: read %s: %w", path, err)
	}

	var doc struct {
		Metadata map[string]any `json:"metadata"`
		Data     struct {
			Detections []TrackedDetectionRow `json:"detections"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("ottrk: parse %s: %w", path, err)
	}

	return Document{Metadata: doc.Metadata, Detections: doc.Data.Detections}, nil
}

// InputVideoPath returns the video this artifact's detections were
// drawn from, as recorded in its metadata: metadata.filename if set,
// else metadata.vid.filename. It returns "" when neither is set; no
// name is derived from the artifact's own path.
func (d Document) InputVideoPath() string {
	if v, ok := d.Metadata["filename"].(string); ok && v != "" {
		return v
	}
	if vid, ok := d.Metadata["vid"].(map[string]any); ok {
		if v, ok := vid["filename"].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
