package detect

import (
	"fmt"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/domain"
)

// Metadata exposes a loaded model's class mapping and the DetectConfig
// it is currently running with (spec §4.2's companion
// ObjectDetectorMetadata).
type Metadata struct {
	Classes map[int]string
	Config  config.DetectConfig
}

// Detector is the C2 contract: consume frames, run batched object
// detection, and produce a parallel sequence of detected frames.
// Stateless across frames.
type Detector interface {
	Detect(frame domain.Frame) (domain.DetectedFrame, error)
	Metadata() Metadata
}

// ReferenceDetector drives a cached Model according to spec §4.2: a
// frame with no image is a pass-through (empty detection list, no
// inference call); a single inference failure is fatal.
type ReferenceDetector struct {
	model  Model
	config config.DetectConfig
	device string
}

// NewReferenceDetector resolves cfg.Weights through cache and binds a
// ReferenceDetector to the result. device should be "cuda" when a GPU
// was detected at startup, else "cpu".
func NewReferenceDetector(cache *ModelCache, cfg config.DetectConfig, device string) (*ReferenceDetector, error) {
	model, err := cache.Get(cfg.Weights)
	if err != nil {
		return nil, err
	}
	return &ReferenceDetector{model: model, config: cfg, device: device}, nil
}

// Metadata returns the bound model's class mapping and detect config.
func (d *ReferenceDetector) Metadata() Metadata {
	return Metadata{Classes: d.model.Classes(), Config: d.config}
}

// Detect runs inference on frame.Image, converting every returned box
// to this package's canonical center-xywh form. A nil Image is a normal
// pass-through: the returned DetectedFrame carries an empty, non-nil
// Detections slice.
func (d *ReferenceDetector) Detect(frame domain.Frame) (domain.DetectedFrame, error) {
	if frame.Image == nil {
		return domain.DetectedFrame{Frame: frame, Detections: []domain.Detection{}}, nil
	}

	boxes, err := d.model.Infer(frame.Image, InferenceParams{
		ConfThreshold: d.config.ConfThreshold,
		IOUThreshold:  d.config.IOUThreshold,
		HalfPrecision: d.config.HalfPrecision,
		ImageSize:     d.config.ImageSize,
		Device:        d.device,
		AgnosticNMS:   true,
	})
	if err != nil {
		return domain.DetectedFrame{}, fmt.Errorf("detect: frame %d: %w", frame.No, err)
	}

	detections := make([]domain.Detection, 0, len(boxes))
	for _, b := range boxes {
		detections = append(detections, toCenterXYWH(b, d.config.Normalized))
	}

	return domain.DetectedFrame{Frame: frame, Detections: detections}, nil
}

// toCenterXYWH converts a RawBox (reported by the model as
// top-left-anchored xywh) into this package's canonical center-xywh
// Detection, regardless of whether the model's coordinates are
// normalized to [0,1] (spec §4.2: "requires the converter to emit that
// form regardless of model output").
func toCenterXYWH(b RawBox, normalized bool) domain.Detection {
	_ = normalized // coordinate scale is orthogonal to the anchor conversion below
	return domain.Detection{
		Class: b.Class,
		Conf:  b.Confidence,
		X:     b.X + b.W/2,
		Y:     b.Y + b.H/2,
		W:     b.W,
		H:     b.H,
	}
}
