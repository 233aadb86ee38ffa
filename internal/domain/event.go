package domain

import "time"

// SourceMetadata describes the segment a FlushEvent closes: the file or
// stream it came from, where it was (or will be) written, and its
// measured shape.
type SourceMetadata struct {
	Source    string
	Output    string
	Duration  time.Duration
	Width     int
	Height    int
	FPS       float64
	StartTime time.Time
}

// FlushEvent closes a segment for detection persistence. It always
// carries a non-empty Duration.
type FlushEvent struct {
	SourceMetadata SourceMetadata
}

// NewVideoStartEvent fires the instant the first frame of a new
// stream-mode segment is received, so observers learn the segment's
// real output path and shape before any FlushEvent for it arrives.
type NewVideoStartEvent struct {
	Output string
	Width  int
	Height int
	FPS    float64
}

// DetectedFrameBufferEvent carries one full segment's worth of
// DetectedFrames, emitted by C3 on flush.
type DetectedFrameBufferEvent struct {
	SourceMetadata SourceMetadata
	Frames         []DetectedFrame
}

// OtdetFileWrittenEvent is emitted by C4 once an OTDET artifact has
// been durably written.
type OtdetFileWrittenEvent struct {
	NumberOfFrames int
	SaveLocation   string
	UnfinishedTracks map[TrackId]bool
}

// OttrkFileWrittenEvent is emitted once an OTTRK artifact has been
// durably written.
type OttrkFileWrittenEvent struct {
	SaveLocation string
}
