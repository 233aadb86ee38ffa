package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu        sync.Mutex
	progress  *progressbar.ProgressBar
	lastStage string
	verbose   bool
	cyan      *color.Color
	green     *color.Color
	yellow    *color.Color
	red       *color.Color
	magenta   *color.Color
	bold      *color.Color
	dim       *color.Color
}

// NewTerminalReporter creates a new terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a new terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

// labelWidth is the global width for all labels to ensure consistent alignment.
const labelWidth = 16

func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("HARDWARE")
	r.printLabel("Hostname:", summary.Hostname)
	r.printLabel("Device:", summary.Device)
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	fmt.Println()
	_, _ = r.cyan.Println("BATCH")
	fmt.Printf("  Processing %d files -> %s\n", info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		fmt.Printf("  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	fmt.Printf("\n%s %s of %d\n", r.bold.Sprint(context.Name), "file", context.TotalFiles)
	_ = context.CurrentFile
}

func (r *TerminalReporter) SourceStarted(summary SourceSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SOURCE")
	r.printLabel("Input:", summary.InputFile)
	r.printLabel("Output:", summary.OutputFile)
	r.printLabel("Duration:", summary.Duration)
	r.printLabel("Resolution:", summary.Resolution)
	r.printLabel("FPS:", fmt.Sprintf("%.2f", summary.FPS))
}

func (r *TerminalReporter) DetectConfig(summary DetectConfigSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("DETECT")
	r.printLabel("Weights:", summary.Weights)
	r.printLabel("Device:", summary.Device)
	r.printLabel("Conf/IOU:", fmt.Sprintf("%.2f / %.2f", summary.ConfThreshold, summary.IOUThreshold))
	r.printLabel("Image size:", fmt.Sprintf("%d", summary.ImageSize))
	r.printLabel("Half prec.:", fmt.Sprintf("%v", summary.HalfPrecision))
	r.printLabel("Normalized:", fmt.Sprintf("%v", summary.Normalized))
}

func (r *TerminalReporter) TrackConfig(summary TrackConfigSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("TRACK")
	r.printLabel("Sigma l/h/iou:", fmt.Sprintf("%.2f / %.2f / %.2f", summary.SigmaL, summary.SigmaH, summary.SigmaIOU))
	r.printLabel("t_min/miss:", fmt.Sprintf("%d / %d", summary.TMin, summary.TMissMax))
	r.printLabel("Merge gap:", summary.MergeThreshold.String())
}

func (r *TerminalReporter) GroupsDiscovered(summary GroupsSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("GROUPS")
	r.printLabel("Count:", fmt.Sprintf("%d", summary.Groups))
	r.printLabel("Hostnames:", strings.Join(summary.Hostnames, ", "))
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		fmt.Println()
		_, _ = r.cyan.Println(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}
	r.mu.Unlock()
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) OtdetWritten(summary OtdetWrittenSummary) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Println()
	_, _ = r.cyan.Println("OTDET WRITTEN")
	r.printLabel("Path:", r.green.Sprint(summary.SavePath))
	r.printLabel("Frames:", fmt.Sprintf("%d", summary.NumberOfFrames))
	r.printLabel("Actual FPS:", fmt.Sprintf("%.2f", summary.ActualFPS))
}

func (r *TerminalReporter) OttrkWritten(summary OttrkWrittenSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("OTTRK WRITTEN")
	r.printLabel("Path:", r.green.Sprint(summary.SavePath))
	r.printLabel("Detections:", fmt.Sprintf("%d", summary.Detections))
	r.printLabel("Finished:", fmt.Sprintf("%d", summary.FinishedTracks))
	r.printLabel("Discarded:", fmt.Sprintf("%d", summary.DiscardedTracks))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("BATCH SUMMARY")
	fmt.Printf("  %s\n", r.bold.Sprintf("%d of %d succeeded", summary.SuccessfulCount, summary.TotalFiles))
	if summary.Warnings > 0 {
		fmt.Printf("  Warnings: %s\n", r.yellow.Sprint(summary.Warnings))
	}
	fmt.Printf("  Time: %s\n", summary.Duration.Round(1000000))
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}
