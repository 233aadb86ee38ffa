// Package discovery finds the input files the detect and track
// commands operate on: video files for C1's file variant, OTDET
// artifacts for C6.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/otvision-go/otvision/internal/util"
)

// FindVideoFiles finds video files in the given directory.
// Returns files sorted alphabetically by filename.
func FindVideoFiles(inputDir string) ([]string, error) {
	return find(inputDir, util.IsVideoFile)
}

// FindOtdetFiles finds OTDET artifacts in the given directory, for the
// track command's C6 input list.
func FindOtdetFiles(inputDir string) ([]string, error) {
	return find(inputDir, util.IsOtdetFile)
}

func find(inputDir string, match func(string) bool) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", inputDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(inputDir, name)
		if match(fullPath) {
			files = append(files, fullPath)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})

	return files, nil
}

// ResolvePaths expands a list of CLI-supplied paths into a flat file
// list: directories are expanded with match, plain files are passed
// through unchanged (after an extension check).
func ResolvePaths(paths []string, match func(string) bool) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %s", p)
		}
		if info.IsDir() {
			files, err := find(p, match)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
			continue
		}
		if match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
