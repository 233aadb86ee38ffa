package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/otvision-go/otvision/internal/ottrk"
)

// generate_video is named in spec §6's CLI surface but owns no
// detect/track component of its own (SPEC_FULL.md §3). It validates an
// OTTRK artifact against its source video and reports, per frame, the
// overlay boxes a renderer would draw — it stops short of an actual
// video encode, which needs a collaborator outside this module's
// detect/track/persist domain.
type generateVideoArgs struct {
	common commonArgs
	video  string
}

func runGenerateVideo(args []string) error {
	fs := flag.NewFlagSet("generate_video", flag.ContinueOnError)
	var ga generateVideoArgs
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Report the track overlay boxes an OTTRK artifact would draw onto its source video.

Usage:
  %s generate_video --paths <OTTRK,...> [options]

Options:
  --paths <LIST>   Comma-separated OTTRK files or directories (required)
  --video <PATH>   Source video to pair with a single OTTRK file (optional;
                    defaults to the video named in each artifact's metadata)
  --verbose        Enable verbose output
`, appName)
	}
	bindCommonFlags(fs, &ga.common)
	fs.StringVar(&ga.video, "video", "", "Source video path")

	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	return executeGenerateVideo(ga)
}

func isOttrkPath(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".ottrk")
}

func executeGenerateVideo(ga generateVideoArgs) error {
	paths, err := expandPaths(ga.common, isOttrkPath)
	if err != nil {
		return err
	}
	if ga.video != "" && len(paths) != 1 {
		return usageError{fmt.Errorf("--video can only be paired with a single --paths artifact")}
	}

	for _, path := range paths {
		if err := reportOverlay(path, ga.video); err != nil {
			return err
		}
	}
	return nil
}

func reportOverlay(ottrkPath, videoOverride string) error {
	doc, err := ottrk.Parse(ottrkPath)
	if err != nil {
		return err
	}

	video := videoOverride
	if video == "" {
		video = doc.InputVideoPath()
	}
	if video == "" {
		return fmt.Errorf("%s: no source video recorded in metadata and no --video given", ottrkPath)
	}
	if _, err := os.Stat(video); err != nil {
		return fmt.Errorf("%s: source video %s: %w", ottrkPath, video, err)
	}

	byFrame := make(map[int][]ottrk.TrackedDetectionRow)
	for _, d := range doc.Detections {
		byFrame[d.Frame] = append(byFrame[d.Frame], d)
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	fmt.Printf("%s -> %s: %d frames with %d total boxes\n", ottrkPath, video, len(frames), len(doc.Detections))
	for _, f := range frames {
		rows := byFrame[f]
		boxes := make([]string, 0, len(rows))
		for _, r := range rows {
			boxes = append(boxes, fmt.Sprintf("track=%d class=%s x=%.1f y=%.1f w=%.1f h=%.1f", r.TrackId, r.Class, r.X, r.Y, r.W, r.H))
		}
		fmt.Printf("  frame %d: %s\n", f, strings.Join(boxes, "; "))
	}
	return nil
}
