package source

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/observer"
	"github.com/otvision-go/otvision/internal/perr"
	"github.com/otvision-go/otvision/internal/util"
)

// FileSource is C1's file variant: a finite sequence of video
// containers, each segmented into exactly one FlushEvent.
type FileSource struct {
	Flushed observer.Subject[domain.FlushEvent]

	cfg    config.DetectConfig
	outdetExtension string
	warn   func(path string, err error)
}

// NewFileSource builds a FileSource. warn is called, never fatally,
// for every file skipped per spec §4.1 (malformed filename or existing
// sibling artifact); it may be nil.
func NewFileSource(cfg config.DetectConfig, outdetExtension string, warn func(path string, err error)) *FileSource {
	if warn == nil {
		warn = func(string, error) {}
	}
	return &FileSource{cfg: cfg, outdetExtension: outdetExtension, warn: warn}
}

// Produce decodes every path in order, calling yield for each frame.
// yield returning an error aborts the whole run (used by the pipeline
// to propagate a downstream fatal failure, e.g. DetectorFailure).
func (s *FileSource) Produce(ctx context.Context, paths []string, yield func(domain.Frame) error) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.produceOne(ctx, path, yield); err != nil {
			if perr.Is(err, perr.FilenameMalformed) || perr.Is(err, perr.OutputExists) {
				s.warn(path, err)
				continue
			}
			return err
		}
	}
	return nil
}

func (s *FileSource) produceOne(ctx context.Context, path string, yield func(domain.Frame) error) error {
	if _, err := parseFilenameOrSkip(path); err != nil {
		return err
	}
	if !s.cfg.Overwrite {
		otdetPath := otdetSiblingPath(path, s.outdetExtension)
		if _, err := os.Stat(otdetPath); err == nil {
			return perr.New(perr.OutputExists, path, fmt.Errorf("%s already exists", otdetPath))
		}
	}

	probe, err := ProbeFile(path)
	if err != nil {
		return err
	}
	if probe.Rotation%90 != 0 {
		return perr.New(perr.DecodeFailure, path, fmt.Errorf("rotation %d degrees is not a multiple of 90", probe.Rotation))
	}

	reader, err := OpenFile(path, probe)
	if err != nil {
		return err
	}
	defer reader.Close()

	detectStart, detectEnd := frameWindow(s.cfg, probe.FPS)

	var no domain.FrameNo
	occurrence := time.Now().UTC()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, ok, err := reader.Read()
		if err != nil {
			return perr.NewAtFrame(perr.DecodeFailure, path, int64(no)+1, err)
		}
		if !ok {
			break
		}
		no++

		image, _, _, err := rotate(raw, probe.Width, probe.Height, probe.Rotation)
		if err != nil {
			return perr.NewAtFrame(perr.DecodeFailure, path, int64(no), err)
		}
		if int64(no) < detectStart || int64(no) >= detectEnd {
			image = nil
		}

		frame := domain.Frame{
			No:         no,
			Occurrence: occurrence,
			Source:     path,
			Output:     otdetSiblingPath(path, s.outdetExtension),
			Image:      image,
		}
		if err := yield(frame); err != nil {
			return err
		}
		occurrence = occurrence.Add(time.Duration(float64(time.Second) / nonZero(probe.FPS)))
	}

	duration := time.Duration(probe.Duration * float64(time.Second))
	if s.cfg.ExpectedDuration != nil {
		duration = time.Duration(*s.cfg.ExpectedDuration * float64(time.Second))
	}
	s.Flushed.Notify(domain.FlushEvent{SourceMetadata: domain.SourceMetadata{
		Source:   path,
		Output:   otdetSiblingPath(path, s.outdetExtension),
		Duration: duration,
		Width:    probe.Width,
		Height:   probe.Height,
		FPS:      probe.FPS,
	}})
	return nil
}

func nonZero(fps float64) float64 {
	if fps <= 0 {
		return 1
	}
	return fps
}

// frameWindow converts DetectConfig's second-denominated window into a
// half-open [start, end) frame-number range using fps. A nil bound
// defaults to the full sequence.
func frameWindow(cfg config.DetectConfig, fps float64) (start, end int64) {
	start = 0
	end = math.MaxInt64
	if cfg.DetectStartSecs != nil {
		start = int64(*cfg.DetectStartSecs * fps)
	}
	if cfg.DetectEndSecs != nil {
		end = int64(*cfg.DetectEndSecs * fps)
	}
	return start, end
}

func otdetSiblingPath(videoPath, extension string) string {
	ext := extOf(videoPath)
	return videoPath[:len(videoPath)-len(ext)] + extension
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func parseFilenameOrSkip(path string) (util.ParsedFilename, error) {
	parsed, err := util.ParseFilename(path)
	if err != nil {
		return util.ParsedFilename{}, perr.New(perr.FilenameMalformed, path, err)
	}
	return parsed, nil
}
