package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageEvent(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
	}{
		{"/data/gallery/0001.jpg downloading", true},
		{"Downloading image 3 of 12", true},
		{"saving /data/gallery/0002.png", true},
		{"# /data/gallery/0003.jpg", true},
		{"  # /data/gallery/0004.jpg", true},
		{"[info] resolving example.com", false},
		{"#comment without space", false},
		{"", false},
		{"   ", false},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, isImageEvent(test.line), "line %q", test.line)
	}
}

func TestCountImageEvents(t *testing.T) {
	lines := []string{
		"[info] starting",
		"# /g/1.jpg",
		"# /g/2.jpg",
		"saving /g/3.jpg",
		"done",
	}
	assert.Equal(t, 3, countImageEvents(lines))
	assert.Equal(t, 0, countImageEvents(nil))
}

func TestTotalSizeMB(t *testing.T) {
	lines := []string{
		"fetched 512 KB",
		"wrote image.jpg 1.5 MB",
		"archive 1 GB",
		"no sizes here",
	}
	total := totalSizeMB(lines)
	assert.InDelta(t, 0.5+1.5+1024, total, 0.01)

	assert.Equal(t, 0.0, totalSizeMB([]string{"nothing"}))
	assert.InDelta(t, 2.0, totalSizeMB([]string{"2.0MiB transferred"}), 0.001)
}
