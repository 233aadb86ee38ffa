// Package domain holds the plain data types shared across every pipeline
// stage: frames, detections and the track lifecycle states they move
// through as they pass from the detector to the tracker to the exporters.
package domain

// TrackId is an opaque, per-group/per-stream unique track identifier.
type TrackId int64

// Detection is a single bounding box reported by the detector for one
// frame. (x, y) is the box center, (w, h) its full width/height, all in
// source-pixel units unless the detector's config requests normalized
// coordinates, in which case the detector converts back to this
// center-xywh form before returning a Detection (see internal/detect).
type Detection struct {
	Class string
	Conf  float32
	X     float32
	Y     float32
	W     float32
	H     float32
}

// TrackedDetection is a Detection labeled with a track id by the IOU
// tracker (C5). IsFirst is true iff this is the first detection ever
// recorded for TrackId.
type TrackedDetection struct {
	Detection
	TrackId TrackId
	IsFirst bool
}

// FinishedDetection is a TrackedDetection stamped with its terminal
// lifecycle state by the unfinished-chunks buffer (C7). Invariant: for
// every track appearing in a finished artifact, exactly one of its
// FinishedDetections has IsLast = true, at the frame with the largest
// frame number that track was observed in.
type FinishedDetection struct {
	TrackedDetection
	IsLast      bool
	IsDiscarded bool
}

// Finish stamps a TrackedDetection with its terminal lifecycle state.
func (d TrackedDetection) Finish(isLast, isDiscarded bool) FinishedDetection {
	return FinishedDetection{TrackedDetection: d, IsLast: isLast, IsDiscarded: isDiscarded}
}
