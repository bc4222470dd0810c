package domain

import (
	"time"

	"github.com/google/uuid"
)

// Link represents one tracked URL moving through classification and download.
type Link struct {
	// ID is the stable identity of the record. It never changes once assigned.
	ID string `json:"id"`

	// URL is the address handed to the download tool. Unique among
	// non-deleted links; re-adding a soft-deleted link's URL reactivates it.
	URL string `json:"url"`

	// Status tracks the link through the processing state machine.
	Status Status `json:"status"`

	// Source records where the link came from (manual, file, clipboard).
	Source string `json:"source"`

	// SourceFile is the originating file for file-sourced links.
	SourceFile string `json:"source_file,omitempty"`

	AddedAt      time.Time `json:"added_at"`
	ProcessedAt  time.Time `json:"processed_at,omitzero"`
	DownloadedAt time.Time `json:"downloaded_at,omitzero"`

	// FilterMatched is the numeric id of the filter that classified this
	// link, for display collaborators. Zero means no filter matched.
	FilterMatched int `json:"filter_matched,omitempty"`

	// ImagesCount and FileSizeMB are filled in from the download tool's
	// output after each run.
	ImagesCount int     `json:"images_count,omitempty"`
	FileSizeMB  float64 `json:"file_size_mb,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	// Deleted marks the link as removed without dropping it from storage.
	Deleted bool `json:"deleted,omitempty"`
}

// NewLink creates a pending link with a fresh id.
func NewLink(url, source, sourceFile string) *Link {
	return &Link{
		ID:         uuid.NewString(),
		URL:        url,
		Status:     StatusPending,
		Source:     source,
		SourceFile: sourceFile,
		AddedAt:    time.Now(),
	}
}
