package chunk

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02_15-04-05", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return parsed.UTC()
}

// S3: two files from cam1 30s apart merge, cam2 stays separate.
func TestGroupFiles_MergesAdjacentSameHost(t *testing.T) {
	files := []FileMeta{
		{Path: "cam1_a", Hostname: "cam1", Start: mustTime(t, "2024-01-01_12-00-00"), ExpectedDuration: 15 * time.Minute},
		{Path: "cam1_b", Hostname: "cam1", Start: mustTime(t, "2024-01-01_12-15-30"), ExpectedDuration: 15 * time.Minute},
		{Path: "cam2_a", Hostname: "cam2", Start: mustTime(t, "2024-01-01_12-00-00"), ExpectedDuration: 15 * time.Minute},
	}

	groups, err := GroupFiles(files, 60*time.Second)
	if err != nil {
		t.Fatalf("GroupFiles: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("want 2 groups, got %d: %+v", len(groups), groups)
	}

	cam1 := groups[0]
	if cam1.Hostname != "cam1" || len(cam1.Files) != 2 {
		t.Fatalf("want cam1 group with 2 files, got %+v", cam1)
	}

	cam2 := groups[1]
	if cam2.Hostname != "cam2" || len(cam2.Files) != 1 {
		t.Fatalf("want cam2 group with 1 file, got %+v", cam2)
	}
}

func TestGroupFiles_GapBeyondThresholdSplits(t *testing.T) {
	files := []FileMeta{
		{Path: "a", Hostname: "cam1", Start: mustTime(t, "2024-01-01_12-00-00"), ExpectedDuration: 15 * time.Minute},
		{Path: "b", Hostname: "cam1", Start: mustTime(t, "2024-01-01_13-00-00"), ExpectedDuration: 15 * time.Minute},
	}

	groups, err := GroupFiles(files, 60*time.Second)
	if err != nil {
		t.Fatalf("GroupFiles: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("want 2 groups for files beyond merge threshold, got %d", len(groups))
	}
}
