package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// DatetimeFormat is the Go reference-time layout used in both video and
// artifact filenames: YYYY-MM-DD_HH-MM-SS, always UTC.
const DatetimeFormat = "2006-01-02_15-04-05"

// filenamePattern extracts hostname (the leading run of letters, digits
// and hyphens before the first underscore), the rest of the stem, and
// the embedded start timestamp from "<hostname>_<rest>_YYYY-MM-DD_HH-MM-SS".
// A hostname that itself contains an underscore is not recognised as
// such: everything after its first underscore is read as <rest>.
var filenamePattern = regexp.MustCompile(
	`^([A-Za-z][A-Za-z0-9\-]*)_(.*)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})$`,
)

// ParsedFilename is the result of successfully parsing a video or
// artifact filename per spec §6.
type ParsedFilename struct {
	Hostname string
	Rest     string
	Start    time.Time
}

// ParseFilename extracts the hostname and start timestamp from path's
// base name (extension stripped). Returns a FilenameMalformed-class
// error when the name doesn't match "<hostname>_<rest>_YYYY-MM-DD_HH-MM-SS.<ext>".
func ParseFilename(path string) (ParsedFilename, error) {
	base := filepath.Base(path)
	stem := base[:len(base)-len(filepath.Ext(base))]

	m := filenamePattern.FindStringSubmatch(stem)
	if m == nil {
		return ParsedFilename{}, fmt.Errorf("filename %q does not match <hostname>_<rest>_YYYY-MM-DD_HH-MM-SS.<ext>", base)
	}

	start, err := time.Parse(DatetimeFormat, m[3])
	if err != nil {
		return ParsedFilename{}, fmt.Errorf("filename %q has an unparseable timestamp: %w", base, err)
	}

	return ParsedFilename{Hostname: m[1], Rest: m[2], Start: start.UTC()}, nil
}

// FormatTimestamp renders t in the canonical filename datetime format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(DatetimeFormat)
}

// FormatLength renders a duration as "H:MM:SS" for OTDET's
// metadata.vid.length field.
func FormatLength(d time.Duration) string {
	total := int64(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// ParseFPSRound formats a frames-per-second value rounded to the
// nearest integer, as used in stream-mode output filenames
// ("<name>_FR<round(fps)>_<start>.mp4").
func ParseFPSRound(fps float64) string {
	return strconv.Itoa(int(fps + 0.5))
}
