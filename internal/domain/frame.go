package domain

import "time"

// FrameNo is a 1-based frame number, monotonic and dense within one
// segment (resets at the start of the next segment).
type FrameNo int

// Frame is the unit C1 produces: metadata, an optional decoded image,
// and the intended save path for the segment the frame belongs to, so
// downstream writers never need to re-derive it.
type Frame struct {
	No         FrameNo
	Occurrence time.Time
	Source     string
	Output     string
	Image      []byte // nil when the frame is outside a detect window, or once dropped by C3
}

// DetectedFrame is a Frame plus the detections the detector (C2) found
// in it. Detections is empty, not nil, for an image-less pass-through
// frame.
type DetectedFrame struct {
	Frame
	Detections []Detection
}

// IsLastFrame decides whether TrackId is finished at frame number no.
type IsLastFrame func(no FrameNo, id TrackId) bool

// TrackedFrame is a DetectedFrame whose detections have been labeled
// with track ids by the IOU tracker (C5), plus the three track-closure
// sets observed at this frame.
//
// Invariants: ObservedTracks = {d.TrackId for d in Detections};
// UnfinishedTracks = ObservedTracks - FinishedTracks - DiscardedTracks;
// FinishedTracks and DiscardedTracks are disjoint.
type TrackedFrame struct {
	No              FrameNo
	Occurrence      time.Time
	Source          string
	Output          string
	Image           []byte
	Detections      []TrackedDetection
	FinishedTracks  map[TrackId]bool
	DiscardedTracks map[TrackId]bool
}

// ObservedTracks returns the set of track ids appearing in this frame.
func (f TrackedFrame) ObservedTracks() map[TrackId]bool {
	out := make(map[TrackId]bool, len(f.Detections))
	for _, d := range f.Detections {
		out[d.TrackId] = true
	}
	return out
}

// UnfinishedTracks returns ObservedTracks minus FinishedTracks and
// DiscardedTracks.
func (f TrackedFrame) UnfinishedTracks() map[TrackId]bool {
	observed := f.ObservedTracks()
	for id := range f.FinishedTracks {
		delete(observed, id)
	}
	for id := range f.DiscardedTracks {
		delete(observed, id)
	}
	return observed
}

// Finish turns this TrackedFrame into a FinishedFrame by stamping every
// retained detection with its terminal lifecycle state. When
// keepDiscarded is false, detections belonging to a discarded track are
// dropped instead of being kept with IsDiscarded = true.
func (f TrackedFrame) Finish(isLast IsLastFrame, discarded map[TrackId]bool, keepDiscarded bool) FinishedFrame {
	var finished []FinishedDetection
	for _, d := range f.Detections {
		isDiscarded := discarded[d.TrackId]
		if isDiscarded && !keepDiscarded {
			continue
		}
		finished = append(finished, d.Finish(isLast(f.No, d.TrackId), isDiscarded))
	}
	return FinishedFrame{
		No:              f.No,
		Occurrence:      f.Occurrence,
		Source:          f.Source,
		Output:          f.Output,
		Image:           f.Image,
		Detections:      finished,
		FinishedTracks:  f.FinishedTracks,
		DiscardedTracks: discarded,
	}
}

// FinishedFrame is a TrackedFrame whose detections now carry terminal
// lifecycle state (IsLast/IsDiscarded).
type FinishedFrame struct {
	No              FrameNo
	Occurrence      time.Time
	Source          string
	Output          string
	Image           []byte
	Detections      []FinishedDetection
	FinishedTracks  map[TrackId]bool
	DiscardedTracks map[TrackId]bool
}
