package otdet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/observer"
	"github.com/otvision-go/otvision/internal/util"
)

// OTDETVersion and OTVisionVersion are stamped into every artifact this
// writer produces.
const (
	OTDETVersion    = "1.2"
	OTVisionVersion = "2.0.0-go"
)

// WriteRequest carries everything Write needs to persist one segment's
// OTDET artifact (spec §4.4).
type WriteRequest struct {
	Event     domain.DetectedFrameBufferEvent
	SavePath  string
	Config    BuilderConfig
	Overwrite bool
}

// Writer persists DetectedFrameBufferEvents as OTDET artifacts and
// notifies registered observers once each write durably lands.
type Writer struct {
	Written observer.Subject[domain.OtdetFileWrittenEvent]
}

// NewWriter constructs a Writer with no observers registered.
func NewWriter() *Writer {
	return &Writer{}
}

// Write computes actual_fps per spec §4.4 steps 1-2, builds the OTDET
// document, and writes it atomically under an advisory file lock so a
// concurrent reader never observes a half-written artifact.
func (w *Writer) Write(req WriteRequest) error {
	actualFrames := len(req.Event.Frames)
	cfg := req.Config
	cfg.NumberOfFrames = actualFrames

	if cfg.ExpectedDuration != nil && *cfg.ExpectedDuration > 0 {
		cfg.ActualFPS = float64(actualFrames) / *cfg.ExpectedDuration
	} else if req.Event.SourceMetadata.Duration > 0 {
		cfg.ActualFPS = float64(actualFrames) / req.Event.SourceMetadata.Duration.Seconds()
	}

	doc := cfg.Build()
	doc["data"] = BuildData(req.Event.Frames)

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("otdet: marshal %s: %w", req.SavePath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock := flock.New(req.SavePath + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return fmt.Errorf("otdet: could not acquire write lock for %s: %w", req.SavePath, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := util.AtomicWriteFile(req.SavePath, payload, req.Overwrite); err != nil {
		return fmt.Errorf("otdet: write %s: %w", req.SavePath, err)
	}

	w.Written.Notify(domain.OtdetFileWrittenEvent{
		NumberOfFrames: actualFrames,
		SaveLocation:   req.SavePath,
	})
	return nil
}
