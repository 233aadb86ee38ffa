// Package config holds the pipeline's configuration types, built by
// value through a constructor plus functional options and validated
// once before any component runs.
package config

import (
	"fmt"
	"runtime"
)

// Detection/tracking defaults, mirroring the reference OTVision
// configuration.
const (
	DefaultConfThreshold = 0.25
	DefaultIOUThreshold  = 0.45
	DefaultImageSize     = 640
	DefaultNormalizedBBox = false

	DefaultSigmaL     = 0.27
	DefaultSigmaH     = 0.42
	DefaultSigmaIOU   = 0.38
	DefaultTMin       = 5
	DefaultTMissMax   = 51

	DefaultMergeThresholdSeconds = 60
	DefaultFlushBufferSize       = 60

	DetectFileExtension = ".otdet"
	TrackFileExtension  = ".ottrk"
)

// DetectConfig configures C1/C2/C4: which model to run, which frame
// window to actually decode, and where to put the resulting OTDET
// files.
type DetectConfig struct {
	Weights          string
	ConfThreshold    float32
	IOUThreshold     float32
	ImageSize        int
	HalfPrecision    bool
	Normalized       bool
	DetectStartSecs  *float64
	DetectEndSecs    *float64
	ExpectedDuration *float64
	Overwrite        bool
}

// Validate checks DetectConfig's own invariants.
func (c DetectConfig) Validate() error {
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("detect: conf threshold %v out of range [0,1]", c.ConfThreshold)
	}
	if c.DetectStartSecs != nil && c.DetectEndSecs != nil && *c.DetectStartSecs >= *c.DetectEndSecs {
		return fmt.Errorf("detect: detect_start (%v) must be before detect_end (%v)", *c.DetectStartSecs, *c.DetectEndSecs)
	}
	return nil
}

// TrackConfig configures the IOU tracker (C5).
type TrackConfig struct {
	SigmaL      float32
	SigmaH      float32
	SigmaIOU    float32
	TMin        int
	TMissMax    int
	KeepDiscarded bool
	Overwrite   bool

	MergeThresholdSeconds float64
}

// Validate checks TrackConfig's own invariants (thresholds in range,
// t_min/t_miss_max non-negative).
func (c TrackConfig) Validate() error {
	for name, v := range map[string]float32{"sigma_l": c.SigmaL, "sigma_h": c.SigmaH, "sigma_iou": c.SigmaIOU} {
		if v < 0 || v > 1 {
			return fmt.Errorf("track: %s %v out of range [0,1]", name, v)
		}
	}
	if c.TMin < 0 || c.TMissMax < 0 {
		return fmt.Errorf("track: t_min and t_miss_max must be non-negative")
	}
	return nil
}

// StreamConfig configures the RTSP variant of C1. When present, the
// pipeline's Validate enforces TMin < FlushBufferSize and
// TMissMax < FlushBufferSize (spec §4.1): otherwise no track could ever
// complete within a single emitted segment.
type StreamConfig struct {
	Source          string
	Name            string
	SaveDir         string
	FlushBufferSize int
	OutputFPS       float64
}

// Config is the root configuration, built by NewConfig and functional
// Options, then validated once before the pipeline runs.
type Config struct {
	InputPaths []string
	OutputDir  string
	LogDir     string

	Detect DetectConfig
	Track  TrackConfig
	Stream *StreamConfig

	Verbose bool
}

// Option mutates a Config under construction.
type Option func(*Config)

// NewConfig builds a Config with the reference defaults, applying opts
// in order.
func NewConfig(inputPaths []string, outputDir, logDir string, opts ...Option) *Config {
	cfg := &Config{
		InputPaths: inputPaths,
		OutputDir:  outputDir,
		LogDir:     logDir,
		Detect: DetectConfig{
			ConfThreshold: DefaultConfThreshold,
			IOUThreshold:  DefaultIOUThreshold,
			ImageSize:     DefaultImageSize,
			Normalized:    DefaultNormalizedBBox,
		},
		Track: TrackConfig{
			SigmaL:                DefaultSigmaL,
			SigmaH:                DefaultSigmaH,
			SigmaIOU:              DefaultSigmaIOU,
			TMin:                  DefaultTMin,
			TMissMax:              DefaultTMissMax,
			MergeThresholdSeconds: DefaultMergeThresholdSeconds,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithStream attaches stream-mode configuration.
func WithStream(stream StreamConfig) Option {
	return func(c *Config) { c.Stream = &stream }
}

// WithVerbose toggles verbose logging.
func WithVerbose(v bool) Option {
	return func(c *Config) { c.Verbose = v }
}

// WithOverwrite toggles the overwrite policy for both detect and track
// output.
func WithOverwrite(v bool) Option {
	return func(c *Config) {
		c.Detect.Overwrite = v
		c.Track.Overwrite = v
	}
}

// Validate checks every cross-cutting invariant the pipeline depends
// on before any component runs.
func (c *Config) Validate() error {
	if err := c.Detect.Validate(); err != nil {
		return err
	}
	if err := c.Track.Validate(); err != nil {
		return err
	}
	if c.Stream != nil {
		if c.Stream.FlushBufferSize <= 0 {
			return fmt.Errorf("stream: flush_buffer_size must be positive")
		}
		if c.Track.TMin >= c.Stream.FlushBufferSize {
			return fmt.Errorf("stream: t_min (%d) must be less than flush_buffer_size (%d)", c.Track.TMin, c.Stream.FlushBufferSize)
		}
		if c.Track.TMissMax >= c.Stream.FlushBufferSize {
			return fmt.Errorf("stream: t_miss_max (%d) must be less than flush_buffer_size (%d)", c.Track.TMissMax, c.Stream.FlushBufferSize)
		}
	}
	return nil
}

// AutoParallelConfig returns a reasonable default number of worker
// goroutines for per-FrameGroup tracking fan-out, based on the host's
// CPU count.
func AutoParallelConfig() int {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	return workers
}
