package pipeline

import (
	"context"
	"fmt"

	"github.com/otvision-go/otvision/internal/buffer"
	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/detect"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/otdet"
	"github.com/otvision-go/otvision/internal/reporter"
	"github.com/otvision-go/otvision/internal/source"
)

// DetectPipeline wires C1→C2→C3→(C4 side-effect) for the file variant
// of the detect command.
type DetectPipeline struct {
	cfg      config.DetectConfig
	detector detect.Detector
	rep      reporter.Reporter
}

// NewDetectPipeline builds a DetectPipeline bound to detector.
func NewDetectPipeline(cfg config.DetectConfig, detector detect.Detector, rep reporter.Reporter) *DetectPipeline {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &DetectPipeline{cfg: cfg, detector: detector, rep: rep}
}

// Run decodes and detects every path in order, persisting one OTDET
// artifact per accepted file.
func (p *DetectPipeline) Run(ctx context.Context, paths []string) error {
	meta := p.detector.Metadata()
	p.rep.DetectConfig(reporter.DetectConfigSummary{
		Weights:       meta.Config.Weights,
		Device:        "", // the reference detector does not expose its bound device string
		ConfThreshold: meta.Config.ConfThreshold,
		IOUThreshold:  meta.Config.IOUThreshold,
		ImageSize:     meta.Config.ImageSize,
		HalfPrecision: meta.Config.HalfPrecision,
		Normalized:    meta.Config.Normalized,
	})

	src := source.NewFileSource(p.cfg, config.DetectFileExtension, func(path string, err error) {
		p.rep.Warning(fmt.Sprintf("%s: %v", path, err))
	})

	buf := buffer.New()
	writer := otdet.NewWriter()

	src.Flushed.Register(func(ev domain.FlushEvent) {
		buf.Flush(ev.SourceMetadata)
	})

	buf.Flushed.Register(func(ev domain.DetectedFrameBufferEvent) {
		builderCfg := buildOtdetConfig(ev.SourceMetadata, meta)
		if ev.SourceMetadata.Duration > 0 {
			d := ev.SourceMetadata.Duration.Seconds()
			builderCfg.ExpectedDuration = &d
		}
		if err := writer.Write(otdet.WriteRequest{
			Event:     ev,
			SavePath:  ev.SourceMetadata.Output,
			Config:    builderCfg,
			Overwrite: p.cfg.Overwrite,
		}); err != nil {
			// ObserverFailure: isolated, logged, never propagated (spec §7).
			p.rep.Error(reporter.ReporterError{
				Title:   "otdet write failed",
				Message: err.Error(),
				Context: ev.SourceMetadata.Source,
			})
		}
	})

	writer.Written.Register(func(ev domain.OtdetFileWrittenEvent) {
		p.rep.OtdetWritten(reporter.OtdetWrittenSummary{
			SavePath:       ev.SaveLocation,
			NumberOfFrames: ev.NumberOfFrames,
		})
	})

	return src.Produce(ctx, paths, func(f domain.Frame) error {
		df, err := p.detector.Detect(f)
		if err != nil {
			return err // DetectorFailure: fatal (spec §7)
		}
		buf.Push(df)
		return nil
	})
}
