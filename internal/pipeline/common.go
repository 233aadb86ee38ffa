// Package pipeline implements C9: wiring C1→C2→C3→C4 for the detect
// command, C6→C7→C8 for the track command, and the combined RTSP→...→
// streaming-C8.9 wiring for the detect command's stream mode, propagating every
// cross-component event and enforcing the configuration invariants
// spec §4.1 and §5 describe.
package pipeline

import (
	"path/filepath"

	"github.com/otvision-go/otvision/internal/detect"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/otdet"
	"github.com/otvision-go/otvision/internal/util"
)

// buildOtdetConfig assembles the BuilderConfig for one segment's OTDET
// artifact from what C1 measured and what C2's model reports about
// itself.
func buildOtdetConfig(meta domain.SourceMetadata, detMeta detect.Metadata) otdet.BuilderConfig {
	cfg := detMeta.Config

	return otdet.BuilderConfig{
		OTVisionVersion: otdet.OTVisionVersion,
		OTDETVersion:    otdet.OTDETVersion,

		Filename:      filepath.Base(meta.Source),
		Filetype:      filepath.Ext(meta.Source),
		Width:         meta.Width,
		Height:        meta.Height,
		RecordedFPS:   meta.FPS,
		RecordedStart: meta.StartTime.Unix(),
		Length:        util.FormatLength(meta.Duration),

		Model: otdet.ModelConfig{
			Name:          "reference",
			Weights:       cfg.Weights,
			IOUThreshold:  cfg.IOUThreshold,
			ImageSize:     cfg.ImageSize,
			HalfPrecision: cfg.HalfPrecision,
			Classes:       detMeta.Classes,
		},
		Normalized:  cfg.Normalized,
		DetectStart: cfg.DetectStartSecs,
		DetectEnd:   cfg.DetectEndSecs,
	}
}
