// Package unfinished implements C7: it holds tracked chunks until every
// track they observed has been finished or discarded, possibly in a
// later chunk, then converts them into finished chunks ready for
// export.
package unfinished

import (
	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/domain"
)

type pendingEntry struct {
	chunk      chunk.TrackedChunk
	unfinished map[domain.TrackId]bool
}

// Buffer is the single-threaded C7 state machine: pending chunks keyed
// by their residual unfinished-track set, a running map of each
// track's last-observed frame number, and the set of tracks known
// discarded so far across the whole run.
type Buffer struct {
	pending        []*pendingEntry
	lastTrackFrame map[domain.TrackId]domain.FrameNo
	discarded      map[domain.TrackId]bool
	keepDiscarded  bool
}

// NewBuffer constructs an empty Buffer. keepDiscarded controls whether
// FinishedChunk.Finish retains detections belonging to discarded
// tracks (marked IsDiscarded) or drops them outright.
func NewBuffer(keepDiscarded bool) *Buffer {
	return &Buffer{
		lastTrackFrame: map[domain.TrackId]domain.FrameNo{},
		discarded:      map[domain.TrackId]bool{},
		keepDiscarded:  keepDiscarded,
	}
}

// Push admits a newly tracked chunk and returns every chunk that
// becomes ready to finish as a result, in FrameGroup/file order, per
// spec §4.7.
func (b *Buffer) Push(c chunk.TrackedChunk) []chunk.FinishedChunk {
	for id, frameNo := range c.LastTrackFrame {
		b.lastTrackFrame[id] = frameNo
	}

	b.pending = append(b.pending, &pendingEntry{
		chunk:      c,
		unfinished: copySet(c.UnfinishedTracks),
	})

	for id := range c.DiscardedTracks {
		b.discarded[id] = true
	}

	for _, entry := range b.pending {
		for id := range c.FinishedTracks {
			delete(entry.unfinished, id)
		}
		for id := range c.DiscardedTracks {
			delete(entry.unfinished, id)
		}
	}

	return b.drainReady()
}

// Close flushes every chunk still pending when the input stream ends,
// treating each one's residual unfinished tracks as discarded since
// they never completed within this run (spec §4.7).
func (b *Buffer) Close() []chunk.FinishedChunk {
	var out []chunk.FinishedChunk
	for _, entry := range b.pending {
		for id := range entry.unfinished {
			b.discarded[id] = true
		}
		out = append(out, b.finish(entry))
	}
	b.pending = nil
	return out
}

// drainReady removes and finishes every pending entry whose residual
// unfinished set is now empty, preserving insertion order.
func (b *Buffer) drainReady() []chunk.FinishedChunk {
	var ready []chunk.FinishedChunk
	var done []*pendingEntry
	var remaining []*pendingEntry

	for _, entry := range b.pending {
		if len(entry.unfinished) == 0 {
			ready = append(ready, b.finish(entry))
			done = append(done, entry)
			continue
		}
		remaining = append(remaining, entry)
	}
	b.pending = remaining
	for _, entry := range done {
		b.releaseIfUnreferenced(entry.chunk.ObservedTracks)
	}
	return ready
}

func (b *Buffer) finish(entry *pendingEntry) chunk.FinishedChunk {
	isLast := func(no domain.FrameNo, id domain.TrackId) bool {
		last, ok := b.lastTrackFrame[id]
		return ok && last == no
	}
	return entry.chunk.Finish(isLast, b.discarded, b.keepDiscarded)
}

// releaseIfUnreferenced drops bookkeeping for tracks no longer needed
// by any chunk still pending, bounding the buffer's memory use.
func (b *Buffer) releaseIfUnreferenced(observed map[domain.TrackId]bool) {
	for id := range observed {
		if b.referencedByPending(id) {
			continue
		}
		delete(b.lastTrackFrame, id)
		delete(b.discarded, id)
	}
}

func (b *Buffer) referencedByPending(id domain.TrackId) bool {
	for _, entry := range b.pending {
		if entry.chunk.ObservedTracks[id] {
			return true
		}
	}
	return false
}

func copySet(in map[domain.TrackId]bool) map[domain.TrackId]bool {
	out := make(map[domain.TrackId]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
