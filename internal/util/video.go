package util

import "strings"

// videoExtensions are the container formats C1's file variant accepts.
var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".m4v": true, ".h264": true,
}

// IsVideoFile reports whether path's extension names a supported video
// container.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(extOf(path))]
}

// IsOtdetFile reports whether path's extension is the OTDET detection
// artifact extension (".otdet").
func IsOtdetFile(path string) bool {
	return strings.ToLower(extOf(path)) == ".otdet"
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
