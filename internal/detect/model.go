// Package detect implements C2: running object detection over a stream
// of frames. The actual model weights are a pluggable collaborator
// (out of scope here); this package provides the Detector contract, a
// process-wide per-weights-path model cache, and a reference Detector
// that drives any Model implementation through it.
package detect

import (
	"fmt"

	"github.com/alphadose/haxmap"
)

// RawBox is one bounding box as reported by a loaded Model, in whatever
// coordinate convention the model natively produces (top-left-anchored
// xywh). Converting to this package's canonical center-xywh Detection
// happens in Detector.Detect.
type RawBox struct {
	Class      string
	Confidence float32
	X          float32
	Y          float32
	W          float32
	H          float32
}

// InferenceParams are the fields the reference detector passes to the
// model on every call (spec §4.2).
type InferenceParams struct {
	ConfThreshold float32
	IOUThreshold  float32
	HalfPrecision bool
	ImageSize     int
	Device        string
	AgnosticNMS   bool
}

// Model is a loaded detector backend bound to one weights path. Models
// are stateless across frames.
type Model interface {
	Infer(image []byte, params InferenceParams) ([]RawBox, error)
	Classes() map[int]string
}

// Loader loads a Model from a weights path. Supplied by whatever
// concrete detector backend is wired into the pipeline.
type Loader func(weights string) (Model, error)

// ModelCache is a process-wide cache of loaded models keyed by weights
// path, mutated only by first-use insertion (spec §5 "shared
// resources"). A concurrent map is used because detect phases for
// different FrameGroups may run under errgroup fan-out and still share
// one cache.
type ModelCache struct {
	models *haxmap.Map[string, Model]
	load   Loader
}

// NewModelCache constructs a ModelCache backed by load.
func NewModelCache(load Loader) *ModelCache {
	return &ModelCache{
		models: haxmap.New[string, Model](),
		load:   load,
	}
}

// Get returns the cached Model for weights, loading it on first
// request.
func (c *ModelCache) Get(weights string) (Model, error) {
	if m, ok := c.models.Get(weights); ok {
		return m, nil
	}
	m, err := c.load(weights)
	if err != nil {
		return nil, fmt.Errorf("detect: load model %q: %w", weights, err)
	}
	c.models.Set(weights, m)
	return m, nil
}
