package downloader

import (
	"regexp"
	"strconv"
	"strings"
)

// isImageEvent reports whether an output line looks like one saved,
// already-present, or downloaded file. gallery-dl prints a path per saved
// file, prefixes already-existing files with "# ", and spells out
// "downloading"/"saving" in verbose mode. This is a heuristic over an
// opaque text stream, not a protocol.
func isImageEvent(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "# ") {
		return true
	}
	lower := strings.ToLower(trimmed)
	return strings.Contains(lower, "download") || strings.Contains(lower, "saving")
}

// countImageEvents scans a full capture of the output for image events.
// The live tally during polling can miss lines that arrive between the
// last tick and process exit, so the final count is the maximum of both.
func countImageEvents(lines []string) int {
	count := 0
	for _, line := range lines {
		if isImageEvent(line) {
			count++
		}
	}
	return count
}

var sizePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(KiB|MiB|GiB|KB|MB|GB|B)\b`)

// totalSizeMB sums every explicit size mention in the output and returns
// megabytes. Lines with no size report contribute nothing, so a quiet tool
// yields zero and the file-size limit check stays inert.
func totalSizeMB(lines []string) float64 {
	var total float64
	for _, line := range lines {
		for _, m := range sizePattern.FindAllStringSubmatch(line, -1) {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			switch strings.ToUpper(m[2]) {
			case "B":
				total += value / (1024 * 1024)
			case "KB", "KIB":
				total += value / 1024
			case "MB", "MIB":
				total += value
			case "GB", "GIB":
				total += value * 1024
			}
		}
	}
	return total
}
