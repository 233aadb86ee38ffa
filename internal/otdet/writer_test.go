package otdet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

func TestWriter_WriteProducesReadableArtifact(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "cam1_x.otdet")

	var gotEvent domain.OtdetFileWrittenEvent
	w := NewWriter()
	w.Written.Register(func(e domain.OtdetFileWrittenEvent) { gotEvent = e })

	event := domain.DetectedFrameBufferEvent{
		SourceMetadata: domain.SourceMetadata{Duration: 2 * time.Second},
		Frames: []domain.DetectedFrame{
			{Frame: domain.Frame{No: 1, Occurrence: time.Unix(100, 0)}, Detections: []domain.Detection{
				{Class: "car", Conf: 0.9, X: 1, Y: 2, W: 3, H: 4},
			}},
			{Frame: domain.Frame{No: 2, Occurrence: time.Unix(101, 0)}},
		},
	}

	err := w.Write(WriteRequest{
		Event:     event,
		SavePath:  savePath,
		Overwrite: true,
		Config: BuilderConfig{
			OTVisionVersion: OTVisionVersion,
			OTDETVersion:    OTDETVersion,
			Filename:        "cam1_x",
			Width:           1920,
			Height:          1080,
		},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if gotEvent.NumberOfFrames != 2 {
		t.Fatalf("want event.NumberOfFrames=2, got %d", gotEvent.NumberOfFrames)
	}
	if gotEvent.SaveLocation != savePath {
		t.Fatalf("want event.SaveLocation=%s, got %s", savePath, gotEvent.SaveLocation)
	}

	raw, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("written artifact is not valid JSON: %v", err)
	}
	data, ok := doc["data"].(map[string]any)
	if !ok || len(data) != 2 {
		t.Fatalf("want 2 frames in data, got %+v", doc["data"])
	}
}

func TestWriter_RespectsOverwriteFalse(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "cam1_x.otdet")
	if err := os.WriteFile(savePath, []byte(`{"pre":"existing"}`), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	info, _ := os.Stat(savePath)
	mtimeBefore := info.ModTime()

	w := NewWriter()
	err := w.Write(WriteRequest{
		Event:     domain.DetectedFrameBufferEvent{},
		SavePath:  savePath,
		Overwrite: false,
	})
	if err == nil {
		t.Fatalf("want an error when overwrite=false and the file exists")
	}

	info2, _ := os.Stat(savePath)
	if !info2.ModTime().Equal(mtimeBefore) {
		t.Fatalf("mtime changed despite overwrite=false")
	}
}
