package iou

import (
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

func detFrame(no int, dets ...domain.Detection) domain.DetectedFrame {
	return domain.DetectedFrame{
		Frame: domain.Frame{
			No:         domain.FrameNo(no),
			Occurrence: time.Unix(int64(no), 0),
		},
		Detections: dets,
	}
}

func car(x, y, conf float32) domain.Detection {
	return domain.Detection{Class: "car", Conf: conf, X: x, Y: y, W: 50, H: 80}
}

// S1: a two-frame track that meets sigma_h/t_min finishes cleanly with
// exactly one is_first and one is_last detection.
func TestTracker_SingleTrackFinishes(t *testing.T) {
	tr := NewTracker(Parameters{SigmaL: 0.1, SigmaH: 0.5, SigmaIOU: 0.3, TMin: 0, TMissMax: 1}, &SequentialIDGenerator{})

	f1 := tr.TrackFrame(detFrame(1, car(100, 150, 0.9)))
	if len(f1.Detections) != 1 || !f1.Detections[0].IsFirst {
		t.Fatalf("frame 1: want one is_first detection, got %+v", f1.Detections)
	}
	id := f1.Detections[0].TrackId

	f2 := tr.TrackFrame(detFrame(2, car(105, 155, 0.9)))
	if len(f2.Detections) != 1 || f2.Detections[0].IsFirst {
		t.Fatalf("frame 2: want one continuation detection, got %+v", f2.Detections)
	}
	if f2.Detections[0].TrackId != id {
		t.Fatalf("track id changed: %v -> %v", id, f2.Detections[0].TrackId)
	}

	finished, discarded := tr.Close()
	if !finished[id] {
		t.Fatalf("want track %v finished, got finished=%v discarded=%v", id, finished, discarded)
	}
	if discarded[id] {
		t.Fatalf("track %v must not be both finished and discarded", id)
	}
}

// S2: a short track that never reaches t_min is discarded once it ages
// past t_miss_max, never finished.
func TestTracker_ShortTrackDiscarded(t *testing.T) {
	tr := NewTracker(Parameters{SigmaL: 0.1, SigmaH: 0.5, SigmaIOU: 0.3, TMin: 2, TMissMax: 1}, &SequentialIDGenerator{})

	f1 := tr.TrackFrame(detFrame(1, car(100, 150, 0.9)))
	id := f1.Detections[0].TrackId

	f2 := tr.TrackFrame(detFrame(2))
	if f2.FinishedTracks[id] || f2.DiscardedTracks[id] {
		t.Fatalf("track should still be aging at frame 2, got finished=%v discarded=%v", f2.FinishedTracks, f2.DiscardedTracks)
	}

	f3 := tr.TrackFrame(detFrame(3))
	if !f3.DiscardedTracks[id] {
		t.Fatalf("want track %v discarded by frame 3, got finished=%v discarded=%v", id, f3.FinishedTracks, f3.DiscardedTracks)
	}
	if f3.FinishedTracks[id] {
		t.Fatalf("track %v must not also be finished", id)
	}
}

// Invariant 6: a single frame with N detections produces N new tracks,
// all is_first, all with distinct ids.
func TestTracker_SingleFrameIdempotence(t *testing.T) {
	tr := NewTracker(Parameters{SigmaL: 0.1, SigmaH: 0.5, SigmaIOU: 0.3, TMin: 0, TMissMax: 0}, &SequentialIDGenerator{})

	f := tr.TrackFrame(detFrame(1, car(0, 0, 0.9), car(500, 500, 0.9), car(1000, 1000, 0.9)))
	if len(f.Detections) != 3 {
		t.Fatalf("want 3 tracked detections, got %d", len(f.Detections))
	}

	seen := map[domain.TrackId]bool{}
	for _, d := range f.Detections {
		if !d.IsFirst {
			t.Fatalf("detection %+v should be is_first on a single frame", d)
		}
		if seen[d.TrackId] {
			t.Fatalf("duplicate track id %v", d.TrackId)
		}
		seen[d.TrackId] = true
	}
}

func TestIOU_DisjointBoxesAreZero(t *testing.T) {
	a := box{x1: 0, y1: 0, x2: 10, y2: 10}
	b := box{x1: 100, y1: 100, x2: 110, y2: 110}
	if got := iouOf(a, b); got != 0 {
		t.Fatalf("disjoint boxes: want 0, got %v", got)
	}
}

func TestIOU_IdenticalBoxesAreOne(t *testing.T) {
	a := box{x1: 0, y1: 0, x2: 10, y2: 10}
	if got := iouOf(a, a); got != 1 {
		t.Fatalf("identical boxes: want 1, got %v", got)
	}
}
