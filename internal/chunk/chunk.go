package chunk

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/otvision-go/otvision/internal/domain"
)

// FrameChunk is the set of detected frames parsed from one OTDET file,
// tagged with the FrameGroup it belongs to.
type FrameChunk struct {
	File         string
	Metadata     map[string]any
	Frames       []domain.DetectedFrame
	FrameGroupID int
}

// OutputExists reports whether this chunk's OTTRK output (File's stem
// plus withSuffix) already exists, for the group-level overwrite-skip
// check in spec §4.6 step 6.
func (c FrameChunk) OutputExists(withSuffix string) bool {
	_, err := os.Stat(OutputPath(c.File, withSuffix))
	return err == nil
}

// OutputPath derives an artifact path by replacing path's extension
// with withSuffix (e.g. ".ottrk").
func OutputPath(path, withSuffix string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + withSuffix
}

// TrackedChunk is a FrameChunk whose frames have been run through the
// IOU tracker, with per-chunk lifecycle sets aggregated across its
// frames. When IsLastChunk is true, every track still unfinished after
// aggregation is promoted into the final frame's FinishedTracks (the
// mandatory group-close rule from spec §3/§4.6).
type TrackedChunk struct {
	File         string
	Metadata     map[string]any
	FrameGroupID int
	IsLastChunk  bool

	Frames []domain.TrackedFrame

	FinishedTracks   map[domain.TrackId]bool
	ObservedTracks   map[domain.TrackId]bool
	UnfinishedTracks map[domain.TrackId]bool
	DiscardedTracks  map[domain.TrackId]bool

	// LastTrackFrame maps each observed track to the frame number it
	// last occurred in. Assumes Frames is sorted by occurrence.
	LastTrackFrame map[domain.TrackId]domain.FrameNo
}

// NewTrackedChunk aggregates observed/finished/discarded/unfinished
// tracks across frames and, when isLastChunk, promotes every track
// still unfinished at that point into the final frame's FinishedTracks
// (mirroring frame_chunk.py's TrackedChunk.__init__).
func NewTrackedChunk(file string, metadata map[string]any, frameGroupID int, isLastChunk bool, frames []domain.TrackedFrame) TrackedChunk {
	observed := map[domain.TrackId]bool{}
	finished := map[domain.TrackId]bool{}
	discarded := map[domain.TrackId]bool{}

	for _, f := range frames {
		for id := range f.ObservedTracks() {
			observed[id] = true
		}
		for id := range f.FinishedTracks {
			finished[id] = true
		}
		for id := range f.DiscardedTracks {
			discarded[id] = true
		}
	}

	unfinished := map[domain.TrackId]bool{}
	for id := range observed {
		if !finished[id] && !discarded[id] {
			unfinished[id] = true
		}
	}

	framesOut := frames
	if isLastChunk && len(frames) > 0 && len(unfinished) > 0 {
		framesOut = make([]domain.TrackedFrame, len(frames))
		copy(framesOut, frames)

		last := framesOut[len(framesOut)-1]
		promoted := map[domain.TrackId]bool{}
		for id := range last.FinishedTracks {
			promoted[id] = true
		}
		for id := range unfinished {
			promoted[id] = true
		}
		last.FinishedTracks = promoted
		framesOut[len(framesOut)-1] = last

		finished = map[domain.TrackId]bool{}
		for _, f := range framesOut {
			for id := range f.FinishedTracks {
				finished[id] = true
			}
		}
		unfinished = map[domain.TrackId]bool{}
	}

	lastTrackFrame := map[domain.TrackId]domain.FrameNo{}
	for _, f := range framesOut {
		for _, d := range f.Detections {
			lastTrackFrame[d.TrackId] = f.No
		}
	}

	return TrackedChunk{
		File:             file,
		Metadata:         metadata,
		FrameGroupID:     frameGroupID,
		IsLastChunk:      isLastChunk,
		Frames:           framesOut,
		FinishedTracks:   finished,
		ObservedTracks:   observed,
		UnfinishedTracks: unfinished,
		DiscardedTracks:  discarded,
		LastTrackFrame:   lastTrackFrame,
	}
}

// Finish turns this TrackedChunk into a FinishedChunk by stamping every
// frame's detections with terminal lifecycle state.
func (c TrackedChunk) Finish(isLast domain.IsLastFrame, discarded map[domain.TrackId]bool, keepDiscarded bool) FinishedChunk {
	frames := make([]domain.FinishedFrame, len(c.Frames))
	for i, f := range c.Frames {
		frames[i] = f.Finish(isLast, discarded, keepDiscarded)
	}
	return FinishedChunk{
		File:         c.File,
		Metadata:     c.Metadata,
		FrameGroupID: c.FrameGroupID,
		IsLastChunk:  c.IsLastChunk,
		Frames:       frames,
	}
}

// FinishedChunk is a TrackedChunk whose frames carry terminal lifecycle
// state, ready for export by C8.
type FinishedChunk struct {
	File         string
	Metadata     map[string]any
	FrameGroupID int
	IsLastChunk  bool
	Frames       []domain.FinishedFrame
}

// DetectionRow is one flattened, export-ready detection row, combining
// a FinishedDetection with its frame's metadata and this chunk's file.
type DetectionRow struct {
	domain.FinishedDetection
	Frame         domain.FrameNo
	Occurrence    int64 // unix seconds, per OTTRK's epoch-seconds convention
	InputFilePath string
	Interpolated  bool
}

// ToDetectionRows flattens every frame's detections into export rows,
// sorted by (frame, track id) — the per-chunk half of the stable sort
// spec §4.8 requires across (input_file_path, frame, track_id); sorting
// by input_file_path is a no-op within a single chunk since every row
// shares one file.
func (c FinishedChunk) ToDetectionRows() []DetectionRow {
	rows := make([]DetectionRow, 0)
	for _, f := range c.Frames {
		for _, d := range f.Detections {
			rows = append(rows, DetectionRow{
				FinishedDetection: d,
				Frame:             f.No,
				Occurrence:        f.Occurrence.Unix(),
				InputFilePath:     c.File,
				Interpolated:      false,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Frame != rows[j].Frame {
			return rows[i].Frame < rows[j].Frame
		}
		return rows[i].TrackId < rows[j].TrackId
	})
	return rows
}
