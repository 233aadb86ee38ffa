package iou

import "github.com/otvision-go/otvision/internal/domain"

// IDGenerator allocates fresh, group-scoped track ids. The file-mode
// pipeline constructs one fresh generator per FrameGroup; the
// stream-mode pipeline constructs one per stream connection.
type IDGenerator interface {
	Next() domain.TrackId
}

// SequentialIDGenerator hands out 1, 2, 3, ... starting fresh for every
// instance, mirroring the reference track_id_generator.
type SequentialIDGenerator struct {
	next domain.TrackId
}

// Next returns the next unused track id.
func (g *SequentialIDGenerator) Next() domain.TrackId {
	g.next++
	return g.next
}

// Parameters are the IOU tracker's four thresholds (spec §4.5).
type Parameters struct {
	SigmaL   float32 // detections below this confidence are dropped before matching
	SigmaH   float32 // a track must have reached this max confidence to finish
	SigmaIOU float32 // minimum IOU for a detection to extend a track
	TMin     int     // a track finishes only if lastFrame - firstFrame is at least this
	TMissMax int     // a track is closed once it has gone more than this many consecutive frames unmatched
}

// activeTrack is the tracker's per-track running state.
type activeTrack struct {
	id         domain.TrackId
	last       box
	maxConf    float32
	firstFrame domain.FrameNo
	lastFrame  domain.FrameNo
	age        int
}

// Tracker runs the per-frame IOU matching algorithm described in spec
// §4.5 over a sequence of DetectedFrames, producing a TrackedFrame per
// input frame. A Tracker is single-use for one FrameGroup/stream: its
// active-track state does not reset between frames.
type Tracker struct {
	params Parameters
	gen    IDGenerator
	active []activeTrack
}

// NewTracker constructs a Tracker scoped to one id-generator.
func NewTracker(params Parameters, gen IDGenerator) *Tracker {
	return &Tracker{params: params, gen: gen}
}

// TrackFrame advances the tracker by exactly one frame and returns the
// resulting TrackedFrame. Frames must be supplied in non-decreasing
// frame-number order.
func (t *Tracker) TrackFrame(frame domain.DetectedFrame) domain.TrackedFrame {
	type pending struct {
		det domain.Detection
		bb  box
	}

	pool := make([]pending, 0, len(frame.Detections))
	for _, d := range frame.Detections {
		if d.Conf < t.params.SigmaL {
			continue
		}
		pool = append(pool, pending{det: d, bb: boxFromDetection(d)})
	}

	var tracked []domain.TrackedDetection
	finished := map[domain.TrackId]bool{}
	discarded := map[domain.TrackId]bool{}

	var next []activeTrack

	for _, tr := range t.active {
		bestIdx := -1
		bestIOU := float32(-1)
		for i, p := range pool {
			v := iouOf(tr.last, p.bb)
			if v > bestIOU {
				bestIOU = v
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestIOU >= t.params.SigmaIOU {
			match := pool[bestIdx]
			pool = append(pool[:bestIdx], pool[bestIdx+1:]...)

			tr.last = match.bb
			if match.det.Conf > tr.maxConf {
				tr.maxConf = match.det.Conf
			}
			tr.lastFrame = frame.No
			tr.age = 0

			tracked = append(tracked, domain.TrackedDetection{
				Detection: match.det,
				TrackId:   tr.id,
				IsFirst:   false,
			})
			next = append(next, tr)
			continue
		}

		tr.age++
		if tr.age > t.params.TMissMax {
			if tr.maxConf >= t.params.SigmaH && int(tr.lastFrame-tr.firstFrame) >= t.params.TMin {
				finished[tr.id] = true
			} else {
				discarded[tr.id] = true
			}
			continue
		}
		next = append(next, tr)
	}

	for _, p := range pool {
		id := t.gen.Next()
		next = append(next, activeTrack{
			id:         id,
			last:       p.bb,
			maxConf:    p.det.Conf,
			firstFrame: frame.No,
			lastFrame:  frame.No,
			age:        0,
		})
		tracked = append(tracked, domain.TrackedDetection{
			Detection: p.det,
			TrackId:   id,
			IsFirst:   true,
		})
	}

	t.active = next

	return domain.TrackedFrame{
		No:              frame.No,
		Occurrence:      frame.Occurrence,
		Source:          frame.Source,
		Output:          frame.Output,
		Image:           frame.Image,
		Detections:      tracked,
		FinishedTracks:  finished,
		DiscardedTracks: discarded,
	}
}

// Active returns the set of track ids currently open. Stream mode uses
// this to snapshot the tracker's in-flight tracks into an
// OtdetFileWrittenEvent at a segment boundary, since the streaming
// exporter (C8.9) needs to know which tracks a segment must still wait
// on before its OTTRK can be written.
func (t *Tracker) Active() map[domain.TrackId]bool {
	out := make(map[domain.TrackId]bool, len(t.active))
	for _, tr := range t.active {
		out[tr.id] = true
	}
	return out
}

// Close ends the tracker, closing every still-active track as finished
// or discarded per the same criteria used mid-stream. Callers use this
// after the last frame of a group/stream to drain remaining tracks;
// the returned sets cover every track still open at that point
// (distinct from the is_last_chunk promotion rule in internal/chunk,
// which instead forces all still-open tracks to finish).
func (t *Tracker) Close() (finished, discarded map[domain.TrackId]bool) {
	finished = map[domain.TrackId]bool{}
	discarded = map[domain.TrackId]bool{}
	for _, tr := range t.active {
		if tr.maxConf >= t.params.SigmaH && int(tr.lastFrame-tr.firstFrame) >= t.params.TMin {
			finished[tr.id] = true
		} else {
			discarded[tr.id] = true
		}
	}
	t.active = nil
	return finished, discarded
}
