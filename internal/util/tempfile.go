// Package util provides small filesystem and formatting helpers shared
// across the pipeline's writers.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MinFreeSpaceMB is the free-space floor, in megabytes, that
// CheckDiskSpace compares the available space against.
const MinFreeSpaceMB = 100

// TempFile represents a temporary file with automatic cleanup on
// failure paths.
type TempFile struct {
	*os.File
	path string
}

// Cleanup closes and removes the temporary file. Safe to call after a
// successful rename (Remove on a missing path is ignored).
func (t *TempFile) Cleanup() error {
	var closeErr error
	if t.File != nil {
		closeErr = t.Close()
	}
	if t.path == "" {
		return closeErr
	}
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

// EnsureDirectoryWritable checks that a directory exists and accepts
// new files, by actually creating and removing a marker file.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testPath := filepath.Join(path, ".otvision_write_test")
	f, err := os.Create(testPath)
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", path)
	}
	_ = f.Close()
	_ = os.Remove(testPath)

	return nil
}

// GetAvailableSpace returns the available disk space in bytes for the
// given path, or 0 if it cannot be determined.
func GetAvailableSpace(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

// CheckDiskSpace reports whether available space at path is at or
// above MinFreeSpaceMB, logging through logger (if non-nil) when it is
// not. Returns true when space is sufficient or cannot be determined
// (fail open: a missing statfs should not block a write attempt).
func CheckDiskSpace(path string, logger func(format string, args ...any)) bool {
	available := GetAvailableSpace(path)
	if available == 0 {
		return true
	}
	availableMB := available / (1024 * 1024)
	if availableMB < MinFreeSpaceMB {
		if logger != nil {
			logger("low disk space in %s: %d MB available (minimum recommended: %d MB)",
				path, availableMB, MinFreeSpaceMB)
		}
		return false
	}
	return true
}

// CreateTempFile creates a sibling temp file next to dir with the
// given prefix/extension, for the atomic write-then-rename idiom used
// by the OTDET/OTTRK writers. The caller renames it into place on
// success or calls Cleanup on failure.
func CreateTempFile(dir, prefix, extension string) (*TempFile, error) {
	if err := EnsureDirectoryWritable(dir); err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	randomSuffix, err := generateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random suffix: %w", err)
	}

	filename := fmt.Sprintf(".%s_%s.%s.tmp", prefix, randomSuffix, extension)
	filePath := filepath.Join(dir, filename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}

	return &TempFile{File: f, path: filePath}, nil
}

// AtomicWriteFile writes data to path by first writing to a sibling
// temp file, fsyncing it, and renaming it over the destination -
// readers of path never observe a partially written artifact. If
// overwrite is false and path already exists, returns ErrOutputExists.
func AtomicWriteFile(path string, data []byte, overwrite bool) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := CreateTempFile(dir, base, "tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.path)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.path, path); err != nil {
		_ = os.Remove(tmp.path)
		return fmt.Errorf("failed to rename into place %s: %w", path, err)
	}
	return nil
}

// ErrOutputExists is returned by AtomicWriteFile when overwrite is
// false and the destination already exists.
var ErrOutputExists = fmt.Errorf("output already exists")

// generateRandomString generates a random hex string of the given
// length, used to make concurrent temp-file names collision-free.
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}
