package buffer

import (
	"testing"
	"time"

	"github.com/otvision-go/otvision/internal/domain"
)

func TestBuffer_StripsImagesButPassesFrameThrough(t *testing.T) {
	b := New()
	frame := domain.DetectedFrame{
		Frame: domain.Frame{No: 1, Image: []byte{1, 2, 3}},
	}

	passed := b.Push(frame)
	if passed.Image == nil {
		t.Fatalf("want the returned frame to pass through with its image intact")
	}

	var got domain.DetectedFrameBufferEvent
	b.Flushed.Register(func(e domain.DetectedFrameBufferEvent) { got = e })
	b.Flush(domain.SourceMetadata{Duration: time.Second})

	if len(got.Frames) != 1 {
		t.Fatalf("want 1 retained frame, got %d", len(got.Frames))
	}
	if got.Frames[0].Image != nil {
		t.Fatalf("want the retained frame's image stripped")
	}
}

func TestBuffer_EmptyFlushEmitsNoEvent(t *testing.T) {
	b := New()
	b.Push(domain.DetectedFrame{Frame: domain.Frame{No: 1}})

	var events []domain.DetectedFrameBufferEvent
	b.Flushed.Register(func(e domain.DetectedFrameBufferEvent) { events = append(events, e) })

	b.Flush(domain.SourceMetadata{})
	b.Flush(domain.SourceMetadata{})

	if len(events) != 1 {
		t.Fatalf("want 1 flush event (the second flush sees an empty buffer), got %d", len(events))
	}
}
