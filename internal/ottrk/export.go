// Package ottrk implements C8: reindexing a finished chunk's frame
// numbers so every artifact starts at 1, sorting its detections
// deterministically, and serializing the result as an OTTRK artifact
// (spec §4.8). It also implements the stream-mode exporter (C8.9, see
// stream.go).
package ottrk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/util"
)

// OTTRKVersion is stamped into every artifact this package writes.
const OTTRKVersion = "1.1"

// TrackerMetadata is the tracker sub-block of metadata.tracking (spec
// §6).
type TrackerMetadata struct {
	Name     string
	SigmaL   float32
	SigmaH   float32
	SigmaIOU float32
	TMin     int
	TMissMax int
}

// ExportRequest carries everything Export needs to produce one OTTRK
// artifact from one finished chunk.
type ExportRequest struct {
	Chunk                  chunk.FinishedChunk
	OTVisionVersion        string
	TrackingRunID          string
	FrameGroupID           int
	FirstTrackedVideoStart time.Time
	LastTrackedVideoEnd    time.Time
	Tracker                TrackerMetadata
	SavePath               string
	Overwrite              bool
}

// Export reindexes, sorts, and writes one OTTRK artifact, returning the
// number of detections written.
func Export(req ExportRequest) (int, error) {
	rows := req.Chunk.ToDetectionRows()

	minFrame := 0
	for i, r := range rows {
		if i == 0 || int(r.Frame) < minFrame {
			minFrame = int(r.Frame)
		}
	}
	offset := minFrame - 1

	detections := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r.InputFilePath != req.Chunk.File {
			return 0, fmt.Errorf("ottrk: detection from %q does not match chunk file %q", r.InputFilePath, req.Chunk.File)
		}
		entry := map[string]any{
			"class":                  r.Class,
			"conf":                   r.Conf,
			"x":                      r.X,
			"y":                      r.Y,
			"w":                      r.W,
			"h":                      r.H,
			"frame":                  int(r.Frame) - offset,
			"occurrence":             r.Occurrence,
			"input_file_path":        r.InputFilePath,
			"track_id":               int64(r.TrackId),
			"interpolated_detection": r.Interpolated,
			"first":                  r.IsFirst,
			"finished":               r.IsLast,
		}
		if r.IsDiscarded {
			entry["discarded"] = true
		}
		detections = append(detections, entry)
	}

	metadata := mergeMetadata(req.Chunk.Metadata, req)

	doc := map[string]any{
		"metadata": metadata,
		"data": map[string]any{
			"detections": detections,
		},
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("ottrk: marshal %s: %w", req.SavePath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lock := flock.New(req.SavePath + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return 0, fmt.Errorf("ottrk: could not acquire write lock for %s: %w", req.SavePath, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := util.AtomicWriteFile(req.SavePath, payload, req.Overwrite); err != nil {
		return 0, fmt.Errorf("ottrk: write %s: %w", req.SavePath, err)
	}

	return len(detections), nil
}

func mergeMetadata(base map[string]any, req ExportRequest) map[string]any {
	out := make(map[string]any, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out["ottrack_version"] = OTTRKVersion
	out["tracking"] = map[string]any{
		"otvision_version":          req.OTVisionVersion,
		"first_tracked_video_start": req.FirstTrackedVideoStart.Unix(),
		"last_tracked_video_end":    req.LastTrackedVideoEnd.Unix(),
		"tracker": map[string]any{
			"name":       req.Tracker.Name,
			"sigma_l":    req.Tracker.SigmaL,
			"sigma_h":    req.Tracker.SigmaH,
			"sigma_iou":  req.Tracker.SigmaIOU,
			"t_min":      req.Tracker.TMin,
			"t_miss_max": req.Tracker.TMissMax,
		},
		"tracking_run_id": req.TrackingRunID,
		"frame_group":     req.FrameGroupID,
	}
	return out
}
