package ottrk

import (
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

func trackedFrameFor(no domain.FrameNo, trackID int64, finished, discarded bool) domain.TrackedFrame {
	f := domain.TrackedFrame{
		No:         no,
		Occurrence: time.Unix(int64(no), 0),
		Source:     "rtsp://cam1",
		Detections: []domain.TrackedDetection{
			{Detection: domain.Detection{Class: "car"}, TrackId: domain.TrackId(trackID)},
		},
		FinishedTracks:  map[domain.TrackId]bool{},
		DiscardedTracks: map[domain.TrackId]bool{},
	}
	if finished {
		f.FinishedTracks[domain.TrackId(trackID)] = true
	}
	if discarded {
		f.DiscardedTracks[domain.TrackId(trackID)] = true
	}
	return f
}

func TestStreamExporter_FlushesOnceUnfinishedSetDrains(t *testing.T) {
	var exported []ExportRequest
	e := NewStreamExporter("2.0.0-go", TrackerMetadata{Name: "IOU"}, true)
	e.exportFn = func(req ExportRequest) (int, error) {
		exported = append(exported, req)
		return len(req.Chunk.Frames), nil
	}

	var writtenEvents []domain.OttrkFileWrittenEvent
	e.Written = func(ev domain.OttrkFileWrittenEvent) { writtenEvents = append(writtenEvents, ev) }

	e.OnOtdetWritten(domain.OtdetFileWrittenEvent{
		UnfinishedTracks: map[domain.TrackId]bool{1: true},
	}, "/out/cam1_0.ottrk", map[string]any{"vid": map[string]any{"filename": "cam1_0"}})

	if err := e.OnTrackedFrame(trackedFrameFor(1, 1, false, false)); err != nil {
		t.Fatalf("OnTrackedFrame: %v", err)
	}
	if len(exported) != 0 {
		t.Fatalf("want no export before track 1 finishes, got %d", len(exported))
	}

	if err := e.OnTrackedFrame(trackedFrameFor(2, 1, true, false)); err != nil {
		t.Fatalf("OnTrackedFrame: %v", err)
	}
	if len(exported) != 1 {
		t.Fatalf("want export once the remembered unfinished set drains, got %d", len(exported))
	}
	if exported[0].SavePath != "/out/cam1_0.ottrk" {
		t.Fatalf("want export at the remembered save path, got %s", exported[0].SavePath)
	}
	if exported[0].FrameGroupID != 0 {
		t.Fatalf("want frame_group_id=0 in stream mode, got %d", exported[0].FrameGroupID)
	}
	if exported[0].TrackingRunID == "" {
		t.Fatalf("want a non-empty tracking_run_id in stream mode")
	}
	if len(writtenEvents) != 1 || writtenEvents[0].SaveLocation != "/out/cam1_0.ottrk" {
		t.Fatalf("want one OttrkFileWrittenEvent at the save path, got %+v", writtenEvents)
	}
}

func TestStreamExporter_CloseFlushesResidualAsDiscarded(t *testing.T) {
	var exported []ExportRequest
	e := NewStreamExporter("2.0.0-go", TrackerMetadata{Name: "IOU"}, true)
	e.exportFn = func(req ExportRequest) (int, error) {
		exported = append(exported, req)
		return len(req.Chunk.Frames), nil
	}

	e.OnOtdetWritten(domain.OtdetFileWrittenEvent{
		UnfinishedTracks: map[domain.TrackId]bool{7: true},
	}, "/out/cam1_0.ottrk", nil)

	if err := e.OnTrackedFrame(trackedFrameFor(1, 7, false, false)); err != nil {
		t.Fatalf("OnTrackedFrame: %v", err)
	}
	if len(exported) != 0 {
		t.Fatalf("want no export yet, got %d", len(exported))
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(exported) != 1 {
		t.Fatalf("want Close to flush the residual segment, got %d", len(exported))
	}
	frames := exported[0].Chunk.Frames
	if len(frames) != 1 || !frames[0].Detections[0].IsDiscarded {
		t.Fatalf("want the residual track marked discarded on close, got %+v", frames)
	}
}
