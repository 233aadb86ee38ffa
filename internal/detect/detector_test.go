package detect

import (
	"errors"
	"testing"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/domain"
)

type stubModel struct {
	boxes   []RawBox
	err     error
	classes map[int]string
	calls   int
}

func (m *stubModel) Infer(image []byte, params InferenceParams) ([]RawBox, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.boxes, nil
}

func (m *stubModel) Classes() map[int]string { return m.classes }

func TestReferenceDetector_PassesThroughImagelessFrames(t *testing.T) {
	model := &stubModel{classes: map[int]string{0: "car"}}
	cache := NewModelCache(func(weights string) (Model, error) { return model, nil })
	d, err := NewReferenceDetector(cache, config.DetectConfig{Weights: "yolo.pt"}, "cpu")
	if err != nil {
		t.Fatalf("NewReferenceDetector: %v", err)
	}

	got, err := d.Detect(domain.Frame{No: 1})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got.Detections == nil || len(got.Detections) != 0 {
		t.Fatalf("want an empty, non-nil Detections slice for an imageless frame, got %#v", got.Detections)
	}
	if model.calls != 0 {
		t.Fatalf("want no inference call for an imageless frame, got %d calls", model.calls)
	}
}

func TestReferenceDetector_ConvertsToCenterXYWH(t *testing.T) {
	model := &stubModel{boxes: []RawBox{{Class: "car", Confidence: 0.9, X: 10, Y: 20, W: 4, H: 8}}}
	cache := NewModelCache(func(weights string) (Model, error) { return model, nil })
	d, err := NewReferenceDetector(cache, config.DetectConfig{Weights: "yolo.pt"}, "cpu")
	if err != nil {
		t.Fatalf("NewReferenceDetector: %v", err)
	}

	got, err := d.Detect(domain.Frame{No: 1, Image: []byte{0xFF}})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got.Detections) != 1 {
		t.Fatalf("want 1 detection, got %d", len(got.Detections))
	}
	det := got.Detections[0]
	if det.X != 12 || det.Y != 24 {
		t.Fatalf("want center (12,24) from top-left (10,20) + half extent, got (%v,%v)", det.X, det.Y)
	}
}

func TestReferenceDetector_InferenceFailureIsFatal(t *testing.T) {
	model := &stubModel{err: errors.New("boom")}
	cache := NewModelCache(func(weights string) (Model, error) { return model, nil })
	d, err := NewReferenceDetector(cache, config.DetectConfig{Weights: "yolo.pt"}, "cpu")
	if err != nil {
		t.Fatalf("NewReferenceDetector: %v", err)
	}

	if _, err := d.Detect(domain.Frame{No: 1, Image: []byte{0xFF}}); err == nil {
		t.Fatalf("want an error when the model fails inference")
	}
}

func TestModelCache_LoadsOnceForRepeatedWeights(t *testing.T) {
	loads := 0
	cache := NewModelCache(func(weights string) (Model, error) {
		loads++
		return &stubModel{}, nil
	})

	if _, err := cache.Get("yolo.pt"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get("yolo.pt"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loads != 1 {
		t.Fatalf("want 1 load for repeated requests with identical weights, got %d", loads)
	}
}
