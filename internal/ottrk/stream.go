package ottrk

import (
	"sync"

	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/domain"
)

// streamBuilder accumulates one stream-mode segment's tracked frames
// until the segment's unfinished tracks, as recorded by the OTDET
// writer at flush time, have all drained (spec §4.8.9).
type streamBuilder struct {
	savePath  string
	metadata  map[string]any
	frames    []domain.TrackedFrame
	remaining map[domain.TrackId]bool
}

func (b *streamBuilder) drained() bool {
	return len(b.remaining) == 0
}

// StreamExporter is C8.9: the streaming track exporter. It observes
// OtdetFileWritten events (one per persisted segment, carrying that
// segment's unfinished-track set) and a live TrackedFrame stream, and
// writes one OTTRK artifact per segment once its remembered unfinished
// set has fully drained. frame_group_id is always 0 in stream mode.
type StreamExporter struct {
	mu       sync.Mutex
	pending  []*streamBuilder
	exportFn func(req ExportRequest) (int, error)

	OTVisionVersion string
	TrackingRunID   string
	Tracker         TrackerMetadata
	Overwrite       bool

	Written func(domain.OttrkFileWrittenEvent)
}

// NewStreamExporter constructs a StreamExporter, minting one
// tracking-run id (chunk.NewTrackingRunID, the same generator file mode
// uses per FrameGroup) that is stamped into every OTTRK artifact this
// exporter writes for the lifetime of the stream connection. exportFn
// defaults to Export; tests may substitute a stub.
func NewStreamExporter(otVisionVersion string, tracker TrackerMetadata, overwrite bool) *StreamExporter {
	return &StreamExporter{
		exportFn:        Export,
		OTVisionVersion: otVisionVersion,
		TrackingRunID:   chunk.NewTrackingRunID(),
		Tracker:         tracker,
		Overwrite:       overwrite,
	}
}

// OnOtdetWritten opens a new pending segment carrying the OTDET event's
// unfinished-track set, using ottrkPath as given as the eventual OTTRK
// location.
func (e *StreamExporter) OnOtdetWritten(ev domain.OtdetFileWrittenEvent, ottrkPath string, metadata map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := make(map[domain.TrackId]bool, len(ev.UnfinishedTracks))
	for id := range ev.UnfinishedTracks {
		remaining[id] = true
	}

	e.pending = append(e.pending, &streamBuilder{
		savePath:  ottrkPath,
		metadata:  metadata,
		remaining: remaining,
	})
}

// OnTrackedFrame appends a TrackedFrame to every still-open segment and
// subtracts its finished/discarded tracks from each segment's
// remembered unfinished set, flushing any segment that fully drains.
func (e *StreamExporter) OnTrackedFrame(f domain.TrackedFrame) error {
	e.mu.Lock()

	for _, b := range e.pending {
		b.frames = append(b.frames, f)
		for id := range f.FinishedTracks {
			delete(b.remaining, id)
		}
		for id := range f.DiscardedTracks {
			delete(b.remaining, id)
		}
	}

	var ready []*streamBuilder
	kept := e.pending[:0]
	for _, b := range e.pending {
		if b.drained() {
			ready = append(ready, b)
		} else {
			kept = append(kept, b)
		}
	}
	e.pending = kept
	e.mu.Unlock()

	for _, b := range ready {
		if err := e.flush(b); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes every still-pending segment, treating residual
// unfinished tracks as discarded, mirroring the end-of-stream flush in
// internal/unfinished.
func (e *StreamExporter) Close() error {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, b := range pending {
		if err := e.flush(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *StreamExporter) flush(b *streamBuilder) error {
	lastSeen := map[domain.TrackId]domain.FrameNo{}
	for _, f := range b.frames {
		for _, d := range f.Detections {
			lastSeen[d.TrackId] = f.No
		}
	}
	isLast := func(no domain.FrameNo, id domain.TrackId) bool {
		last, ok := lastSeen[id]
		return ok && last == no
	}
	discarded := map[domain.TrackId]bool{}
	for id := range b.remaining {
		discarded[id] = true
	}

	finishedFrames := make([]domain.FinishedFrame, len(b.frames))
	for i, f := range b.frames {
		finishedFrames[i] = f.Finish(isLast, discarded, true)
	}

	source := ""
	if len(finishedFrames) > 0 {
		source = finishedFrames[0].Source
	}
	fc := chunk.FinishedChunk{
		File:         source,
		Metadata:     b.metadata,
		FrameGroupID: 0,
		IsLastChunk:  true,
		Frames:       finishedFrames,
	}

	n, err := e.exportFn(ExportRequest{
		Chunk:           fc,
		OTVisionVersion: e.OTVisionVersion,
		TrackingRunID:   e.TrackingRunID,
		FrameGroupID:    0,
		Tracker:         e.Tracker,
		SavePath:        b.savePath,
		Overwrite:       e.Overwrite,
	})
	if err != nil {
		return err
	}
	_ = n

	if e.Written != nil {
		e.Written(domain.OttrkFileWrittenEvent{SaveLocation: b.savePath})
	}
	return nil
}
