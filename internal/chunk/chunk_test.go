package chunk

import (
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

func trackedFrame(no int, trackID domain.TrackId, finished, discarded map[domain.TrackId]bool) domain.TrackedFrame {
	return domain.TrackedFrame{
		No:         domain.FrameNo(no),
		Occurrence: time.Unix(int64(no), 0),
		Detections: []domain.TrackedDetection{
			{Detection: domain.Detection{Class: "car", Conf: 0.9, X: 1, Y: 1, W: 1, H: 1}, TrackId: trackID, IsFirst: no == 1},
		},
		FinishedTracks:  finished,
		DiscardedTracks: discarded,
	}
}

// The mandatory group-close rule: when IsLastChunk is true, every track
// still unfinished after aggregation is promoted into the last frame's
// FinishedTracks, and UnfinishedTracks becomes empty.
func TestNewTrackedChunk_PromotesUnfinishedOnLastChunk(t *testing.T) {
	frames := []domain.TrackedFrame{
		trackedFrame(1, 1, map[domain.TrackId]bool{}, map[domain.TrackId]bool{}),
		trackedFrame(2, 1, map[domain.TrackId]bool{}, map[domain.TrackId]bool{}),
	}

	c := NewTrackedChunk("cam1_x.otdet", nil, 0, true, frames)

	if len(c.UnfinishedTracks) != 0 {
		t.Fatalf("want no unfinished tracks after last-chunk promotion, got %v", c.UnfinishedTracks)
	}
	if !c.FinishedTracks[1] {
		t.Fatalf("want track 1 finished, got %v", c.FinishedTracks)
	}
	lastFrame := c.Frames[len(c.Frames)-1]
	if !lastFrame.FinishedTracks[1] {
		t.Fatalf("want track 1 finished on the chunk's last frame, got %v", lastFrame.FinishedTracks)
	}
}

func TestNewTrackedChunk_NonLastChunkLeavesUnfinished(t *testing.T) {
	frames := []domain.TrackedFrame{
		trackedFrame(1, 1, map[domain.TrackId]bool{}, map[domain.TrackId]bool{}),
	}

	c := NewTrackedChunk("cam1_x.otdet", nil, 0, false, frames)

	if !c.UnfinishedTracks[1] {
		t.Fatalf("want track 1 unfinished on a non-last chunk, got %v", c.UnfinishedTracks)
	}
	if c.FinishedTracks[1] {
		t.Fatalf("track 1 must not be finished on a non-last chunk")
	}
}

func TestFinishedChunk_ToDetectionRowsSortedByFrameThenTrack(t *testing.T) {
	c := FinishedChunk{
		File: "cam1_x.otdet",
		Frames: []domain.FinishedFrame{
			{No: 2, Detections: []domain.FinishedDetection{
				{TrackedDetection: domain.TrackedDetection{TrackId: 2}},
				{TrackedDetection: domain.TrackedDetection{TrackId: 1}},
			}},
			{No: 1, Detections: []domain.FinishedDetection{
				{TrackedDetection: domain.TrackedDetection{TrackId: 1}},
			}},
		},
	}

	rows := c.ToDetectionRows()
	if len(rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.Frame > cur.Frame || (prev.Frame == cur.Frame && prev.TrackId > cur.TrackId) {
			t.Fatalf("rows not sorted by (frame, track_id): %+v", rows)
		}
	}
}
