package downloader

import "linkgarden/internal/domain"

// RunStatus is the overall state of the download worker.
type RunStatus string

const (
	RunStatusIdle    RunStatus = "idle"
	RunStatusRunning RunStatus = "running"
	RunStatusPaused  RunStatus = "paused"
	RunStatusStopped RunStatus = "stopped"
)

// IsActive reports whether a batch is in flight (running or paused).
func (rs RunStatus) IsActive() bool {
	return rs == RunStatusRunning || rs == RunStatusPaused
}

// Progress is the snapshot published to progress observers. The worker
// owns it while a run is active; observers receive copies.
type Progress struct {
	Status           RunStatus
	CurrentLink      *domain.Link
	TotalLinks       int
	CompletedLinks   int
	FailedLinks      int
	CurrentOperation string
	ImagesDownloaded int
}
