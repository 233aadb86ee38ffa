package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/detect"
	"github.com/otvision-go/otvision/internal/logging"
	"github.com/otvision-go/otvision/internal/pipeline"
	"github.com/otvision-go/otvision/internal/reporter"
	"github.com/otvision-go/otvision/internal/util"
)

type detectArgs struct {
	common commonArgs

	weights     string
	conf        float64
	iou         float64
	imageSize   int
	half        bool
	detectStart float64
	detectEnd   float64
	hasStart    bool
	hasEnd      bool
	writeVideo  bool

	// Stream-mode (C1's RTSP variant): present only when --source names
	// an rtsp:// URL, in which case --paths is not required.
	source          string
	streamName      string
	saveDir         string
	flushBufferSize int
	outputFPS       float64
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	var da detectArgs
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Run object detection over video files.

Usage:
  %s detect --paths <PATH,...> [options]

Options:
  --paths <LIST>        Comma-separated video files or directories (required)
  --config <PATH>       Config file (default: user_config.otvision.yaml if present)
  --overwrite           Overwrite existing OTDET artifacts
  --no-overwrite        Never overwrite existing OTDET artifacts (default)
  --weights <PATH>      Detector weights path
  --conf <0-1>          Confidence threshold (default %.2f)
  --iou <0-1>           NMS IoU threshold (default %.2f)
  --imagesize <N>       Inference image size (default %d)
  --half                Run inference in half precision
  --detect_start <SEC>  Start of the detection window, in seconds
  --detect_end <SEC>    End of the detection window, in seconds
  --write_video         (placeholder, see generate_video)
  --source <RTSP URL>   Run in stream mode against a live RTSP source instead
                         of --paths
  --stream_name <NAME>  Stream identifier used in output filenames
  --save_dir <PATH>     Directory stream-mode segments are written to
  --flush_buffer_size <N>  Stream-mode segment size in frames (default %d)
  --output_fps <N>      Stream-mode assumed output FPS (default %d)
  --log-dir <PATH>      Log directory
  --verbose             Enable verbose output
  --no-log              Disable log file creation
`, appName, config.DefaultConfThreshold, config.DefaultIOUThreshold, config.DefaultImageSize,
			config.DefaultFlushBufferSize, 30)
	}
	bindCommonFlags(fs, &da.common)
	fs.StringVar(&da.weights, "weights", "", "Detector weights path")
	fs.Float64Var(&da.conf, "conf", config.DefaultConfThreshold, "Confidence threshold")
	fs.Float64Var(&da.iou, "iou", config.DefaultIOUThreshold, "NMS IoU threshold")
	fs.IntVar(&da.imageSize, "imagesize", config.DefaultImageSize, "Inference image size")
	fs.BoolVar(&da.half, "half", false, "Half precision inference")
	fs.Func("detect_start", "Detection window start in seconds", func(v string) error {
		da.hasStart = true
		_, err := fmt.Sscanf(v, "%f", &da.detectStart)
		return err
	})
	fs.Func("detect_end", "Detection window end in seconds", func(v string) error {
		da.hasEnd = true
		_, err := fmt.Sscanf(v, "%f", &da.detectEnd)
		return err
	})
	fs.BoolVar(&da.writeVideo, "write_video", false, "Also render an overlay video")
	fs.StringVar(&da.source, "source", "", "RTSP URL to run in stream mode")
	fs.StringVar(&da.streamName, "stream_name", "", "Stream identifier used in output filenames")
	fs.StringVar(&da.saveDir, "save_dir", "", "Directory stream-mode segments are written to")
	fs.IntVar(&da.flushBufferSize, "flush_buffer_size", config.DefaultFlushBufferSize, "Stream-mode segment size in frames")
	fs.Float64Var(&da.outputFPS, "output_fps", 30, "Stream-mode assumed output FPS")

	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	return executeDetect(da)
}

func executeDetect(da detectArgs) error {
	_ = resolveConfigFile(da.common.configFile)

	detectCfg := config.DetectConfig{
		Weights:       da.weights,
		ConfThreshold: float32(da.conf),
		IOUThreshold:  float32(da.iou),
		ImageSize:     da.imageSize,
		HalfPrecision: da.half,
		Overwrite:     da.common.resolveOverwrite(false),
	}
	if da.hasStart {
		detectCfg.DetectStartSecs = &da.detectStart
	}
	if da.hasEnd {
		detectCfg.DetectEndSecs = &da.detectEnd
	}
	if err := detectCfg.Validate(); err != nil {
		return fmt.Errorf("config_invalid: %w", err)
	}

	logDir := da.common.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, da.common.verbose, da.common.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}
	rep := newReporters(da.common.verbose, logger)
	rep.Hardware(reporterHardware())

	cache := detect.NewModelCache(defaultModelLoader)
	detector, err := detect.NewReferenceDetector(cache, detectCfg, detect.DetectDevice())
	if err != nil {
		return fmt.Errorf("detector_failure: %w", err)
	}

	ctx, cancel := setupSignalContext()
	defer cancel()

	if da.source != "" {
		return executeStreamDetect(ctx, da, detectCfg, detector, rep)
	}

	paths, err := expandPaths(da.common, func(p string) bool { return isVideoPath(p) })
	if err != nil {
		return err
	}
	rep.BatchStarted(batchStartInfo(paths, ""))

	p := pipeline.NewDetectPipeline(detectCfg, detector, rep)
	if err := p.Run(ctx, paths); err != nil {
		return err
	}
	rep.OperationComplete("detect finished")
	return nil
}

// executeStreamDetect runs the combined RTSP→detect→track→export
// pipeline (C1's stream variant through C8.9) when --source is given.
// The detect command's own flags configure C1/C2; the tracker runs
// with the package defaults, since stream mode has no separate CLI
// surface of its own (spec §6 names only detect/track/generate_video).
func executeStreamDetect(ctx context.Context, da detectArgs, detectCfg config.DetectConfig, detector detect.Detector, rep reporter.Reporter) error {
	streamCfg := config.StreamConfig{
		Source:          da.source,
		Name:            da.streamName,
		SaveDir:         da.saveDir,
		FlushBufferSize: da.flushBufferSize,
		OutputFPS:       da.outputFPS,
	}
	trackCfg := config.TrackConfig{
		SigmaL: config.DefaultSigmaL, SigmaH: config.DefaultSigmaH, SigmaIOU: config.DefaultSigmaIOU,
		TMin: config.DefaultTMin, TMissMax: config.DefaultTMissMax,
		Overwrite: da.common.resolveOverwrite(false),
	}
	if err := (&config.Config{Detect: detectCfg, Track: trackCfg, Stream: &streamCfg}).Validate(); err != nil {
		return fmt.Errorf("config_invalid: %w", err)
	}

	rep.BatchStarted(batchStartInfo([]string{da.source}, streamCfg.SaveDir))

	sp := pipeline.NewStreamPipeline(detectCfg, trackCfg, streamCfg, detector, rep)
	if err := sp.Run(ctx); err != nil {
		return err
	}
	rep.OperationComplete("stream finished")
	return nil
}

func isVideoPath(p string) bool {
	return util.IsVideoFile(p)
}
