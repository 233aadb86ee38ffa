// Package reporter renders pipeline events for a human (TerminalReporter),
// a run log (LogReporter), both at once (CompositeReporter), or nobody
// (NullReporter): one small vocabulary of summary structs, one
// interface, several renderers.
package reporter

import "time"

// Reporter receives every user-facing event the detect and track
// commands emit. Implementations must tolerate being called from
// multiple goroutines (C4/C8 writers and async observer dispatch all
// report concurrently in stream mode).
type Reporter interface {
	Hardware(HardwareSummary)
	BatchStarted(BatchStartInfo)
	FileProgress(FileProgressContext)
	SourceStarted(SourceSummary)
	DetectConfig(DetectConfigSummary)
	TrackConfig(TrackConfigSummary)
	StageProgress(StageProgress)
	OtdetWritten(OtdetWrittenSummary)
	OttrkWritten(OttrkWrittenSummary)
	GroupsDiscovered(GroupsSummary)
	Warning(message string)
	Error(ReporterError)
	OperationComplete(message string)
	BatchComplete(BatchSummary)
	Verbose(message string)
}

// HardwareSummary is reported once at startup.
type HardwareSummary struct {
	Hostname string
	Device   string // "cuda" or "cpu", per spec §4.2's auto-detection
}

// BatchStartInfo describes a multi-file run before the first file is
// processed.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext marks the start of one file/group within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Name        string
}

// SourceSummary describes one segment as C1 measured it, before
// detection begins.
type SourceSummary struct {
	InputFile  string
	OutputFile string
	Duration   string
	Resolution string
	FPS        float64
}

// DetectConfigSummary is reported once per detect run.
type DetectConfigSummary struct {
	Weights       string
	Device        string
	ConfThreshold float32
	IOUThreshold  float32
	ImageSize     int
	HalfPrecision bool
	Normalized    bool
}

// TrackConfigSummary is reported once per track run.
type TrackConfigSummary struct {
	SigmaL, SigmaH, SigmaIOU float32
	TMin, TMissMax           int
	MergeThreshold           time.Duration
}

// StageProgress is a free-form progress line grouped under Stage
// ("detect", "track", "export", ...).
type StageProgress struct {
	Stage   string
	Message string
}

// OtdetWrittenSummary is reported whenever C4 durably writes an
// artifact.
type OtdetWrittenSummary struct {
	SavePath       string
	NumberOfFrames int
	ActualFPS      float64
}

// OttrkWrittenSummary is reported whenever C8 durably writes an
// artifact.
type OttrkWrittenSummary struct {
	SavePath        string
	Detections      int
	FinishedTracks  int
	DiscardedTracks int
}

// GroupsSummary is reported once C6 has partitioned the input files
// into FrameGroups.
type GroupsSummary struct {
	Groups   int
	Hostnames []string
}

// ReporterError is a structured error surfaced to the user: title plus
// message plus optional context/suggestion, mirroring spec §7's
// "structured context (file, frame number where applicable, cause)".
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchSummary is reported once at the end of a multi-file/group run.
type BatchSummary struct {
	SuccessfulCount int
	TotalFiles      int
	Warnings        int
	Duration        time.Duration
}

// NullReporter discards every event.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) BatchStarted(BatchStartInfo)          {}
func (NullReporter) FileProgress(FileProgressContext)     {}
func (NullReporter) SourceStarted(SourceSummary)          {}
func (NullReporter) DetectConfig(DetectConfigSummary)     {}
func (NullReporter) TrackConfig(TrackConfigSummary)       {}
func (NullReporter) StageProgress(StageProgress)          {}
func (NullReporter) OtdetWritten(OtdetWrittenSummary)     {}
func (NullReporter) OttrkWritten(OttrkWrittenSummary)     {}
func (NullReporter) GroupsDiscovered(GroupsSummary)       {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) OperationComplete(string)             {}
func (NullReporter) BatchComplete(BatchSummary)           {}
func (NullReporter) Verbose(string)                       {}

// CompositeReporter forwards every event to each wrapped Reporter in
// order, so a run can render to the terminal and a log file at once.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter combines reporters into one.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) each(f func(Reporter)) {
	for _, r := range c.reporters {
		f(r)
	}
}

func (c *CompositeReporter) Hardware(s HardwareSummary)         { c.each(func(r Reporter) { r.Hardware(s) }) }
func (c *CompositeReporter) BatchStarted(s BatchStartInfo)       { c.each(func(r Reporter) { r.BatchStarted(s) }) }
func (c *CompositeReporter) FileProgress(s FileProgressContext)  { c.each(func(r Reporter) { r.FileProgress(s) }) }
func (c *CompositeReporter) SourceStarted(s SourceSummary)       { c.each(func(r Reporter) { r.SourceStarted(s) }) }
func (c *CompositeReporter) DetectConfig(s DetectConfigSummary)  { c.each(func(r Reporter) { r.DetectConfig(s) }) }
func (c *CompositeReporter) TrackConfig(s TrackConfigSummary)    { c.each(func(r Reporter) { r.TrackConfig(s) }) }
func (c *CompositeReporter) StageProgress(s StageProgress)       { c.each(func(r Reporter) { r.StageProgress(s) }) }
func (c *CompositeReporter) OtdetWritten(s OtdetWrittenSummary)  { c.each(func(r Reporter) { r.OtdetWritten(s) }) }
func (c *CompositeReporter) OttrkWritten(s OttrkWrittenSummary)  { c.each(func(r Reporter) { r.OttrkWritten(s) }) }
func (c *CompositeReporter) GroupsDiscovered(s GroupsSummary)    { c.each(func(r Reporter) { r.GroupsDiscovered(s) }) }
func (c *CompositeReporter) Warning(m string)                    { c.each(func(r Reporter) { r.Warning(m) }) }
func (c *CompositeReporter) Error(e ReporterError)                { c.each(func(r Reporter) { r.Error(e) }) }
func (c *CompositeReporter) OperationComplete(m string)           { c.each(func(r Reporter) { r.OperationComplete(m) }) }
func (c *CompositeReporter) BatchComplete(s BatchSummary)         { c.each(func(r Reporter) { r.BatchComplete(s) }) }
func (c *CompositeReporter) Verbose(m string)                     { c.each(func(r Reporter) { r.Verbose(m) }) }
