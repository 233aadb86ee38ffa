package pipeline

import (
	"context"
	"fmt"

	"github.com/otvision-go/otvision/internal/buffer"
	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/detect"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/iou"
	"github.com/otvision-go/otvision/internal/otdet"
	"github.com/otvision-go/otvision/internal/ottrk"
	"github.com/otvision-go/otvision/internal/reporter"
	"github.com/otvision-go/otvision/internal/source"
)

// StreamPipeline wires RTSP→C1→C2→C3→(C4 side-effect)→streaming
// C5→streaming C8.9 for detect's stream mode (--source): one continuous run over an
// unbounded frame sequence, segmented by C1's flush-buffer size rather
// than by file.
type StreamPipeline struct {
	detectCfg config.DetectConfig
	trackCfg  config.TrackConfig
	streamCfg config.StreamConfig
	detector  detect.Detector
	rep       reporter.Reporter

	src *source.StreamSource
}

// NewStreamPipeline builds a StreamPipeline bound to detector.
func NewStreamPipeline(detectCfg config.DetectConfig, trackCfg config.TrackConfig, streamCfg config.StreamConfig, detector detect.Detector, rep reporter.Reporter) *StreamPipeline {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &StreamPipeline{
		detectCfg: detectCfg, trackCfg: trackCfg, streamCfg: streamCfg,
		detector: detector, rep: rep,
		src: source.NewStreamSource(streamCfg),
	}
}

// Stop requests the stream loop exit before its next frame read, per
// spec §5's cancellation contract.
func (p *StreamPipeline) Stop() { p.src.Stop() }

// Run drives the stream until Stop is called or ctx is cancelled.
func (p *StreamPipeline) Run(ctx context.Context) error {
	meta := p.detector.Metadata()
	p.rep.DetectConfig(reporter.DetectConfigSummary{
		Weights: meta.Config.Weights, ConfThreshold: meta.Config.ConfThreshold,
		IOUThreshold: meta.Config.IOUThreshold, ImageSize: meta.Config.ImageSize,
		HalfPrecision: meta.Config.HalfPrecision, Normalized: meta.Config.Normalized,
	})
	p.rep.TrackConfig(reporter.TrackConfigSummary{
		SigmaL: p.trackCfg.SigmaL, SigmaH: p.trackCfg.SigmaH, SigmaIOU: p.trackCfg.SigmaIOU,
		TMin: p.trackCfg.TMin, TMissMax: p.trackCfg.TMissMax,
	})

	buf := buffer.New()
	writer := otdet.NewWriter()
	gen := &iou.SequentialIDGenerator{}
	tracker := iou.NewTracker(iou.Parameters{
		SigmaL: p.trackCfg.SigmaL, SigmaH: p.trackCfg.SigmaH, SigmaIOU: p.trackCfg.SigmaIOU,
		TMin: p.trackCfg.TMin, TMissMax: p.trackCfg.TMissMax,
	}, gen)
	exporter := ottrk.NewStreamExporter(otdet.OTVisionVersion, ottrk.TrackerMetadata{
		Name: "IOU", SigmaL: p.trackCfg.SigmaL, SigmaH: p.trackCfg.SigmaH, SigmaIOU: p.trackCfg.SigmaIOU,
		TMin: p.trackCfg.TMin, TMissMax: p.trackCfg.TMissMax,
	}, p.trackCfg.Overwrite)
	exporter.Written = func(ev domain.OttrkFileWrittenEvent) {
		p.rep.OttrkWritten(reporter.OttrkWrittenSummary{SavePath: ev.SaveLocation})
	}

	p.src.NewVideoStart.Register(func(ev domain.NewVideoStartEvent) {
		p.rep.StageProgress(reporter.StageProgress{Stage: "stream", Message: fmt.Sprintf("new segment: %s", ev.Output)})
	})

	p.src.Flushed.Register(func(ev domain.FlushEvent) {
		buf.Flush(ev.SourceMetadata)
	})

	buf.Flushed.Register(func(ev domain.DetectedFrameBufferEvent) {
		builderCfg := buildOtdetConfig(ev.SourceMetadata, meta)
		if err := writer.Write(otdet.WriteRequest{
			Event:     ev,
			SavePath:  ev.SourceMetadata.Output,
			Config:    builderCfg,
			Overwrite: p.detectCfg.Overwrite,
		}); err != nil {
			p.rep.Error(reporter.ReporterError{Title: "otdet write failed", Message: err.Error(), Context: ev.SourceMetadata.Source})
		}
	})

	writer.Written.Register(func(ev domain.OtdetFileWrittenEvent) {
		ev.UnfinishedTracks = tracker.Active()
		p.rep.OtdetWritten(reporter.OtdetWrittenSummary{SavePath: ev.SaveLocation, NumberOfFrames: ev.NumberOfFrames})

		doc, err := otdet.Parse(ev.SaveLocation)
		if err != nil {
			p.rep.Error(reporter.ReporterError{Title: "re-parsing otdet for streaming export failed", Message: err.Error(), Context: ev.SaveLocation})
			return
		}
		ottrkPath := otdetPathToOttrk(ev.SaveLocation)
		exporter.OnOtdetWritten(ev, ottrkPath, doc.Metadata)
	})

	err := p.src.Produce(ctx, func(f domain.Frame) error {
		df, derr := p.detector.Detect(f)
		if derr != nil {
			return derr // DetectorFailure: fatal
		}
		buf.Push(df)

		tf := tracker.TrackFrame(df)
		if exportErr := exporter.OnTrackedFrame(tf); exportErr != nil {
			// ObserverFailure: isolated, logged, never propagated.
			p.rep.Error(reporter.ReporterError{Title: "ottrk export failed", Message: exportErr.Error()})
		}
		return nil
	})

	if closeErr := exporter.Close(); closeErr != nil {
		p.rep.Error(reporter.ReporterError{Title: "ottrk export failed", Message: closeErr.Error()})
	}
	return err
}

func otdetPathToOttrk(path string) string {
	ext := config.DetectFileExtension
	if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)] + config.TrackFileExtension
	}
	return path + config.TrackFileExtension
}
