package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/logging"
	"github.com/otvision-go/otvision/internal/pipeline"
	"github.com/otvision-go/otvision/internal/util"
)

type trackArgs struct {
	common commonArgs

	sigmaL        float64
	sigmaH        float64
	sigmaIOU      float64
	tMin          int
	tMissMax      int
	keepDiscarded bool
	mergeSeconds  float64
}

func runTrack(args []string) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	var ta trackArgs
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Run IOU tracking over OTDET artifacts.

Usage:
  %s track --paths <PATH,...> [options]

Options:
  --paths <LIST>        Comma-separated OTDET files or directories (required)
  --config <PATH>       Config file (default: user_config.otvision.yaml if present)
  --overwrite           Overwrite existing OTTRK artifacts
  --no-overwrite        Never overwrite existing OTTRK artifacts (default)
  --sigma_l <0-1>       Detection-confidence floor (default %.2f)
  --sigma_h <0-1>       Track-confirmation threshold (default %.2f)
  --sigma_iou <0-1>     IOU match threshold (default %.2f)
  --t_min <N>           Minimum track length in frames (default %d)
  --t_miss_max <N>      Maximum consecutive misses (default %d)
  --keep_discarded      Retain discarded tracks in OTTRK output
  --merge_threshold <S> Chunk-merge gap threshold in seconds (default %.0f)
  --log-dir <PATH>      Log directory
  --verbose             Enable verbose output
  --no-log              Disable log file creation
`, appName, config.DefaultSigmaL, config.DefaultSigmaH, config.DefaultSigmaIOU,
			config.DefaultTMin, config.DefaultTMissMax, float64(config.DefaultMergeThresholdSeconds))
	}
	bindCommonFlags(fs, &ta.common)
	fs.Float64Var(&ta.sigmaL, "sigma_l", config.DefaultSigmaL, "Detection-confidence floor")
	fs.Float64Var(&ta.sigmaH, "sigma_h", config.DefaultSigmaH, "Track-confirmation threshold")
	fs.Float64Var(&ta.sigmaIOU, "sigma_iou", config.DefaultSigmaIOU, "IOU match threshold")
	fs.IntVar(&ta.tMin, "t_min", config.DefaultTMin, "Minimum track length in frames")
	fs.IntVar(&ta.tMissMax, "t_miss_max", config.DefaultTMissMax, "Maximum consecutive misses")
	fs.BoolVar(&ta.keepDiscarded, "keep_discarded", false, "Retain discarded tracks in OTTRK output")
	fs.Float64Var(&ta.mergeSeconds, "merge_threshold", config.DefaultMergeThresholdSeconds, "Chunk-merge gap threshold in seconds")

	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	return executeTrack(ta)
}

func executeTrack(ta trackArgs) error {
	paths, err := expandPaths(ta.common, util.IsOtdetFile)
	if err != nil {
		return err
	}

	_ = resolveConfigFile(ta.common.configFile)

	trackCfg := config.TrackConfig{
		SigmaL:                float32(ta.sigmaL),
		SigmaH:                float32(ta.sigmaH),
		SigmaIOU:              float32(ta.sigmaIOU),
		TMin:                  ta.tMin,
		TMissMax:              ta.tMissMax,
		KeepDiscarded:         ta.keepDiscarded,
		Overwrite:             ta.common.resolveOverwrite(false),
		MergeThresholdSeconds: ta.mergeSeconds,
	}
	if err := trackCfg.Validate(); err != nil {
		return fmt.Errorf("config_invalid: %w", err)
	}

	logDir := ta.common.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, ta.common.verbose, ta.common.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}
	rep := newReporters(ta.common.verbose, logger)

	rep.Hardware(reporterHardware())
	rep.BatchStarted(batchStartInfo(paths, ""))

	ctx, cancel := setupSignalContext()
	defer cancel()

	p := pipeline.NewTrackPipeline(trackCfg, rep)
	if err := p.Run(ctx, paths); err != nil {
		return err
	}
	rep.OperationComplete("track finished")
	return nil
}
