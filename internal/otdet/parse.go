package otdet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

// Document is a parsed OTDET artifact: its metadata (kept as a generic
// map so C6 can update it in place per spec §4.6 step 4) and its
// frames, re-hydrated as DetectedFrames in frame-number order.
type Document struct {
	Metadata map[string]any
	Frames   []domain.DetectedFrame
}

// Parse reads and decodes an OTDET artifact at path.
func Parse(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("otdet: read %s: %w", path, err)
	}

	var doc struct {
		Metadata map[string]any `json:"metadata"`
		Data     map[string]struct {
			Occurrence float64 `json:"occurrence"`
			Detections []struct {
				Class string  `json:"class"`
				Conf  float32 `json:"conf"`
				X     float32 `json:"x"`
				Y     float32 `json:"y"`
				W     float32 `json:"w"`
				H     float32 `json:"h"`
			} `json:"detections"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("otdet: parse %s: %w", path, err)
	}

	frameNos := make([]int, 0, len(doc.Data))
	for k := range doc.Data {
		n, err := strconv.Atoi(k)
		if err != nil {
			return Document{}, fmt.Errorf("otdet: %s has non-numeric frame key %q", path, k)
		}
		frameNos = append(frameNos, n)
	}
	sort.Ints(frameNos)

	frames := make([]domain.DetectedFrame, 0, len(frameNos))
	for _, no := range frameNos {
		raw := doc.Data[strconv.Itoa(no)]
		dets := make([]domain.Detection, 0, len(raw.Detections))
		for _, d := range raw.Detections {
			dets = append(dets, domain.Detection{Class: d.Class, Conf: d.Conf, X: d.X, Y: d.Y, W: d.W, H: d.H})
		}
		frames = append(frames, domain.DetectedFrame{
			Frame: domain.Frame{
				No:         domain.FrameNo(no),
				Occurrence: time.Unix(int64(raw.Occurrence), 0).UTC(),
			},
			Detections: dets,
		})
	}

	return Document{Metadata: doc.Metadata, Frames: frames}, nil
}

// ExpectedDuration reads metadata.vid.expected_duration as a
// time.Duration, or zero if absent.
func (d Document) ExpectedDuration() time.Duration {
	vid, _ := d.Metadata["vid"].(map[string]any)
	if vid == nil {
		return 0
	}
	secs, ok := vid["expected_duration"].(float64)
	if !ok {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// RecordedStart reads metadata.vid.recorded_start_date as a UTC
// time.Time, or the zero time if absent.
func (d Document) RecordedStart() time.Time {
	vid, _ := d.Metadata["vid"].(map[string]any)
	if vid == nil {
		return time.Time{}
	}
	secs, ok := vid["recorded_start_date"].(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
