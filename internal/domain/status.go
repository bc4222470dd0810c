package domain

// Status represents the processing state of a link.
type Status string

const (
	// StatusPending means the link was ingested but not yet classified.
	StatusPending Status = "pending"

	// StatusToDownload means a filter selected the link for download.
	StatusToDownload Status = "to_download"

	// StatusToSkip means a filter ruled the link out.
	StatusToSkip Status = "to_skip"

	// StatusToSkipLimit means a resource limit was breached and the breach
	// was resolved as "do not continue".
	StatusToSkipLimit Status = "to_skip_limit"

	// StatusToReprocess means the link was manually flagged for another
	// classification pass.
	StatusToReprocess Status = "to_reprocess"

	// StatusDownloading means the download tool is currently running for
	// this link.
	StatusDownloading Status = "downloading"

	// StatusDownloaded means the tool finished with exit code 0.
	StatusDownloaded Status = "downloaded"

	// StatusSkipped means the link was skipped mid-run (skip-current or a
	// global stop while it was in flight).
	StatusSkipped Status = "skipped"

	// StatusError means the tool failed for this link.
	StatusError Status = "error"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsClassifiable reports whether the link is waiting for a classification
// pass.
func (s Status) IsClassifiable() bool {
	return s == StatusPending || s == StatusToReprocess
}

// IsRetryable reports whether the link can be resubmitted to the downloader
// as part of an override batch.
func (s Status) IsRetryable() bool {
	return s == StatusToSkip || s == StatusToSkipLimit || s == StatusSkipped || s == StatusError
}

// ParseStatus returns the status for a persisted value, defaulting unknown
// or empty values to pending so legacy records keep loading.
func ParseStatus(v string) Status {
	switch s := Status(v); s {
	case StatusPending, StatusToDownload, StatusToSkip, StatusToSkipLimit,
		StatusToReprocess, StatusDownloading, StatusDownloaded, StatusSkipped, StatusError:
		return s
	default:
		return StatusPending
	}
}
