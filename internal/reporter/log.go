package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LogReporter writes pipeline events to a log file.
type LogReporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewLogReporter creates a new log reporter that writes to the given writer.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) Hardware(summary HardwareSummary) {
	r.log("INFO", "=== HARDWARE ===")
	r.log("INFO", "Hostname: %s, device: %s", summary.Hostname, summary.Device)
}

func (r *LogReporter) BatchStarted(info BatchStartInfo) {
	r.log("INFO", "=== BATCH STARTED ===")
	r.log("INFO", "Processing %d files -> %s", info.TotalFiles, info.OutputDir)
	for i, name := range info.FileList {
		r.log("INFO", "  %d. %s", i+1, name)
	}
}

func (r *LogReporter) FileProgress(context FileProgressContext) {
	r.log("INFO", "--- %s (%d of %d) ---", context.Name, context.CurrentFile, context.TotalFiles)
}

func (r *LogReporter) SourceStarted(summary SourceSummary) {
	r.log("INFO", "=== SOURCE ===")
	r.log("INFO", "Input: %s", summary.InputFile)
	r.log("INFO", "Output: %s", summary.OutputFile)
	r.log("INFO", "Duration: %s, resolution: %s, fps: %.2f", summary.Duration, summary.Resolution, summary.FPS)
}

func (r *LogReporter) DetectConfig(summary DetectConfigSummary) {
	r.log("INFO", "=== DETECT CONFIG ===")
	r.log("INFO", "Weights: %s, device: %s", summary.Weights, summary.Device)
	r.log("INFO", "conf=%.2f iou=%.2f image_size=%d half=%v normalized=%v",
		summary.ConfThreshold, summary.IOUThreshold, summary.ImageSize, summary.HalfPrecision, summary.Normalized)
}

func (r *LogReporter) TrackConfig(summary TrackConfigSummary) {
	r.log("INFO", "=== TRACK CONFIG ===")
	r.log("INFO", "sigma_l=%.2f sigma_h=%.2f sigma_iou=%.2f t_min=%d t_miss_max=%d merge_threshold=%s",
		summary.SigmaL, summary.SigmaH, summary.SigmaIOU, summary.TMin, summary.TMissMax, summary.MergeThreshold)
}

func (r *LogReporter) GroupsDiscovered(summary GroupsSummary) {
	r.log("INFO", "=== GROUPS ===")
	r.log("INFO", "%d groups: %s", summary.Groups, strings.Join(summary.Hostnames, ", "))
}

func (r *LogReporter) StageProgress(update StageProgress) {
	r.log("INFO", "[%s] %s", strings.ToUpper(update.Stage), update.Message)
}

func (r *LogReporter) OtdetWritten(summary OtdetWrittenSummary) {
	r.log("INFO", "otdet written: %s (%d frames, %.2f fps)", summary.SavePath, summary.NumberOfFrames, summary.ActualFPS)
}

func (r *LogReporter) OttrkWritten(summary OttrkWrittenSummary) {
	r.log("INFO", "ottrk written: %s (%d detections, %d finished, %d discarded)",
		summary.SavePath, summary.Detections, summary.FinishedTracks, summary.DiscardedTracks)
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(err ReporterError) {
	r.log("ERROR", "%s: %s", err.Title, err.Message)
	if err.Context != "" {
		r.log("ERROR", "  Context: %s", err.Context)
	}
	if err.Suggestion != "" {
		r.log("ERROR", "  Suggestion: %s", err.Suggestion)
	}
}

func (r *LogReporter) OperationComplete(message string) {
	r.log("INFO", "=== COMPLETE === %s", message)
}

func (r *LogReporter) BatchComplete(summary BatchSummary) {
	r.log("INFO", "=== BATCH COMPLETE ===")
	r.log("INFO", "%d of %d succeeded, %d warnings, took %s",
		summary.SuccessfulCount, summary.TotalFiles, summary.Warnings, summary.Duration)
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
