package ottrk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/domain"
)

func finishedDet(trackID int64, class string, isFirst, isLast, isDiscarded bool) domain.FinishedDetection {
	return domain.FinishedDetection{
		TrackedDetection: domain.TrackedDetection{
			Detection: domain.Detection{Class: class, Conf: 0.8, X: 1, Y: 2, W: 3, H: 4},
			TrackId:   domain.TrackId(trackID),
			IsFirst:   isFirst,
		},
		IsLast:      isLast,
		IsDiscarded: isDiscarded,
	}
}

func TestExport_ReindexesFramesFromOne(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "cam1_x.ottrk")

	fc := chunk.FinishedChunk{
		File:         "cam1_x.mp4",
		Metadata:     map[string]any{"vid": map[string]any{"filename": "cam1_x"}},
		FrameGroupID: 3,
		IsLastChunk:  true,
		Frames: []domain.FinishedFrame{
			{No: 41, Occurrence: time.Unix(100, 0), Detections: []domain.FinishedDetection{finishedDet(1, "car", true, false, false)}},
			{No: 42, Occurrence: time.Unix(101, 0), Detections: []domain.FinishedDetection{finishedDet(1, "car", false, true, false)}},
		},
	}

	n, err := Export(ExportRequest{
		Chunk:           fc,
		OTVisionVersion: "2.0.0-go",
		TrackingRunID:   "run-1",
		FrameGroupID:    3,
		Tracker:         TrackerMetadata{Name: "IOU", SigmaL: 0.1, SigmaH: 0.5, SigmaIOU: 0.3, TMin: 2, TMissMax: 3},
		SavePath:        savePath,
		Overwrite:       true,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 detections written, got %d", n)
	}

	raw, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc struct {
		Data struct {
			Detections []map[string]any `json:"detections"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if len(doc.Data.Detections) != 2 {
		t.Fatalf("want 2 detection rows, got %d", len(doc.Data.Detections))
	}
	if got := doc.Data.Detections[0]["frame"]; got != float64(1) {
		t.Fatalf("want first detection reindexed to frame 1, got %v", got)
	}
	if got := doc.Data.Detections[1]["frame"]; got != float64(2) {
		t.Fatalf("want second detection reindexed to frame 2, got %v", got)
	}
}

func TestExport_SortsByTrackIdWithinFrame(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "cam1_x.ottrk")

	fc := chunk.FinishedChunk{
		File:     "cam1_x.mp4",
		Metadata: map[string]any{},
		Frames: []domain.FinishedFrame{
			{No: 1, Occurrence: time.Unix(100, 0), Detections: []domain.FinishedDetection{
				finishedDet(9, "car", true, true, false),
				finishedDet(2, "person", true, true, false),
			}},
		},
	}

	_, err := Export(ExportRequest{Chunk: fc, SavePath: savePath, Overwrite: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	raw, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc struct {
		Data struct {
			Detections []map[string]any `json:"detections"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if got := doc.Data.Detections[0]["track_id"]; got != float64(2) {
		t.Fatalf("want lower track_id first, got %v", got)
	}
	if got := doc.Data.Detections[1]["track_id"]; got != float64(9) {
		t.Fatalf("want higher track_id second, got %v", got)
	}
}
