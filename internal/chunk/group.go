// Package chunk implements C6: grouping OTDET files into FrameGroups by
// hostname and temporal adjacency, parsing each into a FrameChunk, and
// aggregating per-chunk tracking metadata once the IOU tracker (C5) has
// run over it.
package chunk

import (
	"fmt"
	"sort"
	"time"
)

// FileMeta is the metadata C6 needs from each OTDET file before it can
// be grouped: its hostname (parsed from the filename, spec §6), the
// segment's start instant and expected duration.
type FileMeta struct {
	Path             string
	Hostname         string
	Start            time.Time
	ExpectedDuration time.Duration
}

func (m FileMeta) end() time.Time {
	return m.Start.Add(m.ExpectedDuration)
}

// FrameGroup is a sequence of files treated as one tracking scope: one
// id-generator, one OTTRK per file, cross-file track lifecycles.
type FrameGroup struct {
	ID       int
	Start    time.Time
	End      time.Time
	Hostname string
	Files    []FileMeta
}

// DefaultMergeThreshold is the maximum gap between two segments from
// the same host that still places them in the same FrameGroup.
const DefaultMergeThreshold = 60 * time.Second

// GroupFiles partitions files into FrameGroups (spec §4.6 step 2): sort
// by hostname, then by start, then merge adjacent files whose hostnames
// match and whose gap to the running group's end falls in
// [0, mergeThreshold]. Group ids are assigned sequentially starting at
// 0, in the order the groups are closed.
func GroupFiles(files []FileMeta, mergeThreshold time.Duration) ([]FrameGroup, error) {
	if len(files) == 0 {
		return nil, nil
	}

	sorted := make([]FileMeta, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Hostname != sorted[j].Hostname {
			return sorted[i].Hostname < sorted[j].Hostname
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var groups []FrameGroup
	current := FrameGroup{
		ID:       0,
		Start:    sorted[0].Start,
		End:      sorted[0].end(),
		Hostname: sorted[0].Hostname,
		Files:    []FileMeta{sorted[0]},
	}

	for _, f := range sorted[1:] {
		gap := f.Start.Sub(current.End)
		if f.Hostname == current.Hostname && gap >= 0 && gap <= mergeThreshold {
			current.Files = append(current.Files, f)
			if f.end().After(current.End) {
				current.End = f.end()
			}
			continue
		}

		groups = append(groups, current)
		current = FrameGroup{
			ID:       len(groups),
			Start:    f.Start,
			End:      f.end(),
			Hostname: f.Hostname,
			Files:    []FileMeta{f},
		}
	}
	groups = append(groups, current)

	for _, g := range groups {
		if err := validateGroup(g, mergeThreshold); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// validateGroup checks invariant 5 from spec §8: every file in a group
// shares its hostname, and consecutive gaps never exceed the threshold.
func validateGroup(g FrameGroup, mergeThreshold time.Duration) error {
	sorted := make([]FileMeta, len(g.Files))
	copy(sorted, g.Files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i, f := range sorted {
		if f.Hostname != g.Hostname {
			return fmt.Errorf("frame group %d: hostname mismatch %q vs %q", g.ID, f.Hostname, g.Hostname)
		}
		if i == 0 {
			continue
		}
		gap := f.Start.Sub(sorted[i-1].end())
		if gap < 0 || gap > mergeThreshold {
			return fmt.Errorf("frame group %d: gap between %q and %q (%v) exceeds merge threshold %v",
				g.ID, sorted[i-1].Path, f.Path, gap, mergeThreshold)
		}
	}
	return nil
}
