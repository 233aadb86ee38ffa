package unfinished

import (
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/domain"
)

func frame(no int, id domain.TrackId, finished bool) domain.TrackedFrame {
	f := domain.TrackedFrame{
		No:         domain.FrameNo(no),
		Occurrence: time.Unix(int64(no), 0),
		Detections: []domain.TrackedDetection{
			{Detection: domain.Detection{Class: "car"}, TrackId: id},
		},
		FinishedTracks:  map[domain.TrackId]bool{},
		DiscardedTracks: map[domain.TrackId]bool{},
	}
	if finished {
		f.FinishedTracks[id] = true
	}
	return f
}

// A track left unfinished in chunk A (not the group's last chunk)
// finishes in chunk B; the buffer must hold A until B arrives, then
// emit A with is_last correctly attributed to the frame in B where the
// track was last observed.
func TestBuffer_HoldsUntilCrossChunkFinish(t *testing.T) {
	b := NewBuffer(false)

	chunkA := chunk.NewTrackedChunk("cam1_a.otdet", nil, 0, false, []domain.TrackedFrame{
		frame(1, 1, false),
	})
	if ready := b.Push(chunkA); len(ready) != 0 {
		t.Fatalf("chunk A should not be ready yet, got %d ready", len(ready))
	}

	chunkB := chunk.NewTrackedChunk("cam1_b.otdet", nil, 0, true, []domain.TrackedFrame{
		frame(2, 1, true),
	})
	ready := b.Push(chunkB)
	if len(ready) != 2 {
		t.Fatalf("want both chunks ready once track 1 finishes, got %d", len(ready))
	}

	finishedA := ready[0]
	if finishedA.File != "cam1_a.otdet" {
		t.Fatalf("want chunk A emitted first (file order), got %+v", finishedA)
	}
	if len(finishedA.Frames[0].Detections) != 1 || finishedA.Frames[0].Detections[0].IsLast {
		t.Fatalf("want track 1's chunk-A detection not marked is_last, got %+v", finishedA.Frames[0].Detections)
	}
	finishedB := ready[1]
	if len(finishedB.Frames[0].Detections) != 1 || !finishedB.Frames[0].Detections[0].IsLast {
		t.Fatalf("want track 1's chunk-B detection marked is_last, got %+v", finishedB.Frames[0].Detections)
	}
}

// On Close, any chunk still pending has its residual unfinished tracks
// treated as discarded.
func TestBuffer_CloseDiscardsResidualUnfinished(t *testing.T) {
	b := NewBuffer(true)

	c := chunk.NewTrackedChunk("cam1_a.otdet", nil, 0, false, []domain.TrackedFrame{
		frame(1, 1, false),
	})
	b.Push(c)

	finished := b.Close()
	if len(finished) != 1 {
		t.Fatalf("want 1 finished chunk from Close, got %d", len(finished))
	}
	dets := finished[0].Frames[0].Detections
	if len(dets) != 1 || !dets[0].IsDiscarded {
		t.Fatalf("want residual track marked discarded, got %+v", dets)
	}
}
