// Package otdet implements C4: turning one segment's worth of detected
// frames into an OTDET artifact (spec §6) and writing it atomically.
package otdet

import (
	"strconv"

	"github.com/otvision-go/otvision/internal/domain"
)

// ModelConfig describes the detector that produced a segment's
// detections, embedded in metadata.det.model.
type ModelConfig struct {
	Name          string
	Weights       string
	IOUThreshold  float32
	ImageSize     int
	MaxConfidence float32
	HalfPrecision bool
	Classes       map[int]string
}

// BuilderConfig is everything needed to materialize one OTDET
// artifact's metadata, built by value and handed to Build (spec §9's
// "constructor takes config by value, separate build() returns the
// artifact" pattern, replacing a mutable builder).
type BuilderConfig struct {
	OTVisionVersion string
	OTDETVersion    string

	Filename         string
	Filetype         string
	Width            int
	Height           int
	RecordedFPS      float64
	ActualFPS        float64
	NumberOfFrames   int
	RecordedStart    int64 // epoch seconds
	Length           string
	ExpectedDuration *float64

	Model       ModelConfig
	Chunksize   int
	Normalized  bool
	DetectStart *float64
	DetectEnd   *float64
}

// Build materializes the metadata document for an OTDET artifact. The
// frames themselves are serialized separately by BuildData, since they
// stream from a slice rather than the builder config.
func (c BuilderConfig) Build() map[string]any {
	vid := map[string]any{
		"filename":            c.Filename,
		"filetype":            c.Filetype,
		"width":               c.Width,
		"height":              c.Height,
		"recorded_fps":        c.RecordedFPS,
		"actual_fps":          c.ActualFPS,
		"number_of_frames":    c.NumberOfFrames,
		"recorded_start_date": c.RecordedStart,
		"length":              c.Length,
	}
	if c.ExpectedDuration != nil {
		vid["expected_duration"] = *c.ExpectedDuration
	}

	det := map[string]any{
		"otvision_version": c.OTVisionVersion,
		"model": map[string]any{
			"name":           c.Model.Name,
			"weights":        c.Model.Weights,
			"iou_threshold":  c.Model.IOUThreshold,
			"image_size":     c.Model.ImageSize,
			"max_confidence": c.Model.MaxConfidence,
			"half_precision": c.Model.HalfPrecision,
			"classes":        c.Model.Classes,
		},
		"chunksize":       c.Chunksize,
		"normalized_bbox": c.Normalized,
		"detect_start":    c.DetectStart,
		"detect_end":      c.DetectEnd,
	}

	return map[string]any{
		"metadata": map[string]any{
			"otdet_version": c.OTDETVersion,
			"vid":           vid,
			"det":           det,
		},
	}
}

// BuildData converts detected frames into OTDET's "data" map, keyed by
// 1-based frame number as a string (spec §6).
func BuildData(frames []domain.DetectedFrame) map[string]any {
	data := make(map[string]any, len(frames))
	for _, f := range frames {
		dets := make([]map[string]any, 0, len(f.Detections))
		for _, d := range f.Detections {
			dets = append(dets, map[string]any{
				"class": d.Class,
				"conf":  d.Conf,
				"x":     d.X,
				"y":     d.Y,
				"w":     d.W,
				"h":     d.H,
			})
		}
		data[strconv.Itoa(int(f.No))] = map[string]any{
			"occurrence": f.Occurrence.Unix(),
			"detections": dets,
		}
	}
	return data
}
