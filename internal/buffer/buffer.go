// Package buffer implements C3: accumulating detected frames between
// FlushEvents, stripping their heavy image payloads before retention,
// and emitting one DetectedFrameBufferEvent per flush.
package buffer

import (
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/observer"
)

// Buffer retains a stripped copy of every detected frame it sees since
// the last flush. It is single-consumer, matching the pipeline's
// cooperative scheduling model.
type Buffer struct {
	Flushed observer.Subject[domain.DetectedFrameBufferEvent]

	frames []domain.DetectedFrame
}

// New constructs an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Push retains a copy of frame with its Image payload stripped, and
// returns frame unchanged for the caller to forward downstream.
func (b *Buffer) Push(frame domain.DetectedFrame) domain.DetectedFrame {
	retained := frame
	retained.Image = nil
	b.frames = append(b.frames, retained)
	return frame
}

// Flush snapshots every frame retained since the previous flush (or
// since New), clears the buffer, and emits a DetectedFrameBufferEvent.
// An empty buffer emits nothing.
func (b *Buffer) Flush(meta domain.SourceMetadata) {
	frames := b.frames
	b.frames = nil
	if len(frames) == 0 {
		return
	}
	b.Flushed.Notify(domain.DetectedFrameBufferEvent{
		SourceMetadata: meta,
		Frames:         frames,
	})
}
