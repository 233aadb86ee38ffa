// Package main provides the CLI entry point for otvision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/detect"
	"github.com/otvision-go/otvision/internal/discovery"
	"github.com/otvision-go/otvision/internal/logging"
	"github.com/otvision-go/otvision/internal/reporter"
	"github.com/otvision-go/otvision/internal/util"
)

const (
	appName    = "otvision"
	appVersion = "2.0.0-go"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches to a subcommand and returns the process exit code:
// 0 success, 2 CLI-parse error, 1 any other failure (spec §6).
func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	var err error
	switch args[0] {
	case "detect":
		err = runDetect(args[1:])
	case "track":
		err = runTrack(args[1:])
	case "generate_video":
		err = runGenerateVideo(args[1:])
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return 0
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}

type usageError struct{ error }

func isUsageError(err error) bool {
	_, ok := err.(usageError)
	return ok
}

func printUsage() {
	fmt.Printf(`%s - traffic video detection and tracking pipeline

Usage:
  %s <command> [options]

Commands:
  detect          Run object detection over video files, writing OTDET artifacts
  track           Run IOU tracking over OTDET artifacts, writing OTTRK artifacts
  generate_video  Report the tracked boxes an OTTRK artifact would draw over its source video
  version         Print version information
  help            Show this help message

Run '%s <command> --help' for command-specific options.
`, appName, appName, appName)
}

// commonArgs are the flags every subcommand accepts per spec §6.
type commonArgs struct {
	paths       string // comma-separated
	configFile  string
	overwrite   bool
	noOverwrite bool
	logDir      string
	verbose     bool
	noLog       bool
}

func (c commonArgs) resolveOverwrite(defaultValue bool) bool {
	if c.overwrite {
		return true
	}
	if c.noOverwrite {
		return false
	}
	return defaultValue
}

func (c commonArgs) pathList() []string {
	var out []string
	for _, p := range strings.Split(c.paths, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveConfigFile implements spec §6's config-file lookup: an
// explicit --config wins; otherwise look for user_config.otvision.yaml
// in the current directory; otherwise fall back to defaults. YAML
// parsing itself is out of scope (spec §1's Non-goals list "JSON/YAML
// codecs" as an external collaborator): callers discard the returned
// path, so a discovered file is neither parsed nor applied, and the
// configuration comes from flags and defaults.
func resolveConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("user_config.otvision.yaml"); err == nil {
		return "user_config.otvision.yaml"
	}
	return ""
}

func newReporters(verbose bool, logger *logging.Logger) reporter.Reporter {
	term := reporter.NewTerminalReporterVerbose(verbose)
	if logger == nil {
		return term
	}
	return reporter.NewCompositeReporter(term, reporter.NewLogReporter(logger.Writer()))
}

func setupSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func expandPaths(args commonArgs, match func(string) bool) ([]string, error) {
	paths := args.pathList()
	if len(paths) == 0 {
		return nil, usageError{fmt.Errorf("--paths is required")}
	}
	resolved, err := discovery.ResolvePaths(paths, match)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("no matching files found under %s", strings.Join(paths, ", "))
	}
	return resolved, nil
}

// defaultModelLoader is the seam for a concrete detector backend. The
// model weights themselves are a pluggable collaborator out of scope
// for this pipeline; wiring a real backend means supplying a
// detect.Loader here.
func defaultModelLoader(weights string) (detect.Model, error) {
	return nil, fmt.Errorf("no detector backend configured for weights %q; wire a detect.Loader", weights)
}

// bindCommonFlags registers the flags every subcommand accepts (spec
// §6: --paths, --config, --overwrite/--no-overwrite, logging flags).
func bindCommonFlags(fs *flag.FlagSet, c *commonArgs) {
	fs.StringVar(&c.paths, "paths", "", "Comma-separated input paths")
	fs.StringVar(&c.configFile, "config", "", "Config file path")
	fs.BoolVar(&c.overwrite, "overwrite", false, "Overwrite existing artifacts")
	fs.BoolVar(&c.noOverwrite, "no-overwrite", false, "Never overwrite existing artifacts")
	fs.StringVar(&c.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&c.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&c.noLog, "no-log", false, "Disable log file creation")
}

func reporterHardware() reporter.HardwareSummary {
	hostname, _ := os.Hostname()
	return reporter.HardwareSummary{Hostname: hostname, Device: detect.DetectDevice()}
}

func batchStartInfo(paths []string, outputDir string) reporter.BatchStartInfo {
	names := make([]string, len(paths))
	copy(names, paths)
	return reporter.BatchStartInfo{TotalFiles: len(paths), FileList: names, OutputDir: outputDir}
}
