package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/otvision-go/otvision/internal/chunk"
	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/iou"
	"github.com/otvision-go/otvision/internal/otdet"
	"github.com/otvision-go/otvision/internal/ottrk"
	"github.com/otvision-go/otvision/internal/reporter"
	"github.com/otvision-go/otvision/internal/unfinished"
	"github.com/otvision-go/otvision/internal/util"
)

// TrackPipeline wires C6→C7→C8 for the track command: group discovery,
// per-group IOU tracking, and OTTRK export. Independent FrameGroups
// share no mutable state, so they run concurrently under an errgroup
// (spec §9's parallel-groups design note), each with its own id
// generator and unfinished-chunks buffer.
type TrackPipeline struct {
	cfg config.TrackConfig
	rep reporter.Reporter
}

// NewTrackPipeline builds a TrackPipeline.
func NewTrackPipeline(cfg config.TrackConfig, rep reporter.Reporter) *TrackPipeline {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &TrackPipeline{cfg: cfg, rep: rep}
}

// Run groups otdetPaths into FrameGroups and tracks each to completion.
func (p *TrackPipeline) Run(ctx context.Context, otdetPaths []string) error {
	p.rep.TrackConfig(reporter.TrackConfigSummary{
		SigmaL: p.cfg.SigmaL, SigmaH: p.cfg.SigmaH, SigmaIOU: p.cfg.SigmaIOU,
		TMin: p.cfg.TMin, TMissMax: p.cfg.TMissMax,
	})

	docs := make(map[string]otdet.Document, len(otdetPaths))
	metas := make([]chunk.FileMeta, 0, len(otdetPaths))
	for _, path := range otdetPaths {
		parsed, err := util.ParseFilename(path)
		if err != nil {
			p.rep.Warning(fmt.Sprintf("%s: %v", path, err))
			continue
		}
		doc, err := otdet.Parse(path)
		if err != nil {
			return fmt.Errorf("track: %w", err)
		}
		docs[path] = doc
		metas = append(metas, chunk.FileMeta{
			Path: path, Hostname: parsed.Hostname, Start: parsed.Start,
			ExpectedDuration: doc.ExpectedDuration(),
		})
	}

	mergeThreshold := time.Duration(p.cfg.MergeThresholdSeconds * float64(time.Second))
	groups, err := chunk.GroupFiles(metas, mergeThreshold)
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}

	hostnames := make([]string, 0, len(groups))
	for _, g := range groups {
		hostnames = append(hostnames, g.Hostname)
	}
	p.rep.GroupsDiscovered(reporter.GroupsSummary{Groups: len(groups), Hostnames: hostnames})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.AutoParallelConfig())
	for _, grp := range groups {
		grp := grp
		g.Go(func() error { return p.runGroup(gctx, grp, docs) })
	}
	return g.Wait()
}

func (p *TrackPipeline) runGroup(ctx context.Context, grp chunk.FrameGroup, docs map[string]otdet.Document) error {
	if !p.cfg.Overwrite {
		for _, fm := range grp.Files {
			if (chunk.FrameChunk{File: fm.Path}).OutputExists(config.TrackFileExtension) {
				p.rep.Warning(fmt.Sprintf("frame group %d skipped: %s already exists",
					grp.ID, chunk.OutputPath(fm.Path, config.TrackFileExtension)))
				return nil
			}
		}
	}

	gen := &iou.SequentialIDGenerator{}
	tracker := iou.NewTracker(iou.Parameters{
		SigmaL: p.cfg.SigmaL, SigmaH: p.cfg.SigmaH, SigmaIOU: p.cfg.SigmaIOU,
		TMin: p.cfg.TMin, TMissMax: p.cfg.TMissMax,
	}, gen)
	buf := unfinished.NewBuffer(p.cfg.KeepDiscarded)
	runID := chunk.NewTrackingRunID()

	var frameOffset domain.FrameNo
	for i, fm := range grp.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc := docs[fm.Path]
		trackedFrames := make([]domain.TrackedFrame, 0, len(doc.Frames))
		lastNo := frameOffset
		for _, df := range doc.Frames {
			df.No += frameOffset
			if df.No > lastNo {
				lastNo = df.No
			}
			trackedFrames = append(trackedFrames, tracker.TrackFrame(df))
		}
		frameOffset = lastNo

		isLast := i == len(grp.Files)-1
		tc := chunk.NewTrackedChunk(fm.Path, doc.Metadata, grp.ID, isLast, trackedFrames)

		for _, fc := range buf.Push(tc) {
			savePath := chunk.OutputPath(fc.File, config.TrackFileExtension)
			if err := p.export(fc, runID, grp, savePath); err != nil {
				return err
			}
		}
	}

	for _, fc := range buf.Close() {
		savePath := chunk.OutputPath(fc.File, config.TrackFileExtension)
		if err := p.export(fc, runID, grp, savePath); err != nil {
			return err
		}
	}
	return nil
}

func (p *TrackPipeline) export(fc chunk.FinishedChunk, runID string, grp chunk.FrameGroup, savePath string) error {
	n, err := ottrk.Export(ottrk.ExportRequest{
		Chunk:                  fc,
		OTVisionVersion:        otdet.OTVisionVersion,
		TrackingRunID:          runID,
		FrameGroupID:           fc.FrameGroupID,
		FirstTrackedVideoStart: grp.Start,
		LastTrackedVideoEnd:    grp.End,
		Tracker: ottrk.TrackerMetadata{
			Name: "IOU", SigmaL: p.cfg.SigmaL, SigmaH: p.cfg.SigmaH, SigmaIOU: p.cfg.SigmaIOU,
			TMin: p.cfg.TMin, TMissMax: p.cfg.TMissMax,
		},
		SavePath:  savePath,
		Overwrite: p.cfg.Overwrite,
	})
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}

	finished, discarded := 0, 0
	for _, f := range fc.Frames {
		for _, d := range f.Detections {
			if !d.IsLast {
				continue
			}
			if d.IsDiscarded {
				discarded++
			} else {
				finished++
			}
		}
	}
	p.rep.OttrkWritten(reporter.OttrkWrittenSummary{
		SavePath: savePath, Detections: n, FinishedTracks: finished, DiscardedTracks: discarded,
	})
	return nil
}
