package downloader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
	"linkgarden/internal/storage"
)

// DefaultTickInterval is the poll interval of the supervising loop.
const DefaultTickInterval = 100 * time.Millisecond

// ErrAlreadyRunning is returned by Start while a batch is active.
var ErrAlreadyRunning = errors.New("downloads already running")

// ErrNoLinks is returned by Start when the requested batch is empty.
var ErrNoLinks = errors.New("no links to download")

// Limits are the per-link resource ceilings. A zero value disables the
// corresponding check.
type Limits struct {
	MaxImagesPerLink int
	MaxTimePerLink   time.Duration
	MaxFileSizeMB    float64
}

// ToolConfig describes how to invoke the external download tool.
type ToolConfig struct {
	// Command is the tool executable, e.g. "gallery-dl".
	Command string

	// DefaultArgs are placed before any generated flags.
	DefaultArgs []string

	// OutputDir is passed via -d when set; created if missing. Relative
	// paths resolve against BaseDir.
	OutputDir string

	// ConfigFile is passed via --config, but only when the file exists.
	ConfigFile string

	// BaseDir anchors relative output directories.
	BaseDir string
}

type observer[T any] struct {
	id int
	fn T
}

// Service supervises download batches: one external subprocess at a time,
// a fixed-interval poll loop enforcing per-link limits through the decision
// gateway, and progress/completion delivery to registered observers.
type Service struct {
	store   storage.LinkRepository
	tool    ToolConfig
	limits  Limits
	gateway *Gateway
	log     logrus.FieldLogger
	tick    time.Duration

	running  atomic.Bool
	stopSig  atomic.Bool
	pauseSig atomic.Bool
	skipSig  atomic.Bool
	wg       sync.WaitGroup

	mu          sync.Mutex
	progress    Progress
	nextObsID   int
	progressObs []observer[func(Progress)]
	completeObs []observer[func(linkID string, success bool)]
}

// NewService creates an idle orchestrator.
func NewService(store storage.LinkRepository, tool ToolConfig, limits Limits, logger logrus.FieldLogger) *Service {
	return &Service{
		store:   store,
		tool:    tool,
		limits:  limits,
		gateway: NewGateway(logger),
		log:     logger.WithField("component", "downloader"),
		tick:    DefaultTickInterval,
		progress: Progress{
			Status:           RunStatusIdle,
			CurrentOperation: "Idle",
		},
	}
}

// SetResolver registers the limit-breach decision callback (last
// registration wins).
func (s *Service) SetResolver(r Resolver) {
	s.gateway.SetResolver(r)
}

// OnProgress subscribes to progress snapshots. The returned function
// unsubscribes.
func (s *Service) OnProgress(fn func(Progress)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	s.progressObs = append(s.progressObs, observer[func(Progress)]{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.progressObs = slices.DeleteFunc(s.progressObs, func(o observer[func(Progress)]) bool { return o.id == id })
	}
}

// OnCompletion subscribes to per-item completion events. The returned
// function unsubscribes.
func (s *Service) OnCompletion(fn func(linkID string, success bool)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	s.completeObs = append(s.completeObs, observer[func(string, bool)]{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.completeObs = slices.DeleteFunc(s.completeObs, func(o observer[func(string, bool)]) bool { return o.id == id })
	}
}

// Progress returns the latest snapshot.
func (s *Service) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsRunning reports whether a batch is active.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Start begins a batch: the links with the given ids, or every link
// currently marked to_download when ids is empty. It rejects a second
// concurrent run and an empty batch, and returns as soon as the worker is
// launched.
func (s *Service) Start(ctx context.Context, linkIDs []string) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("Download already running")
		return ErrAlreadyRunning
	}

	links, err := s.gatherLinks(ctx, linkIDs)
	if err != nil {
		s.running.Store(false)
		return err
	}
	if len(links) == 0 {
		s.running.Store(false)
		s.log.Info("No links to download")
		return ErrNoLinks
	}

	s.stopSig.Store(false)
	s.pauseSig.Store(false)
	s.skipSig.Store(false)

	s.mu.Lock()
	s.progress = Progress{
		Status:     RunStatusRunning,
		TotalLinks: len(links),
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.worker(ctx, links)

	s.log.WithField("count", len(links)).Info("Started download batch")
	return nil
}

// Wait blocks until the current batch (if any) finishes.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Pause suspends the batch between items. The item in flight finishes
// first; pause never preempts a running subprocess.
func (s *Service) Pause() {
	s.mu.Lock()
	if s.progress.Status == RunStatusRunning {
		s.pauseSig.Store(true)
		s.progress.Status = RunStatusPaused
		s.mu.Unlock()
		s.log.Info("Downloads paused")
		s.notifyProgress()
		return
	}
	s.mu.Unlock()
}

// Resume lifts a pause.
func (s *Service) Resume() {
	s.mu.Lock()
	if s.progress.Status == RunStatusPaused {
		s.pauseSig.Store(false)
		s.progress.Status = RunStatusRunning
		s.mu.Unlock()
		s.log.Info("Downloads resumed")
		s.notifyProgress()
		return
	}
	s.mu.Unlock()
}

// Stop aborts the batch. The active subprocess is terminated on the next
// poll tick; remaining items are not processed. Stop wins over Pause.
func (s *Service) Stop() {
	s.stopSig.Store(true)
	s.mu.Lock()
	if s.progress.Status.IsActive() {
		s.progress.Status = RunStatusStopped
	}
	s.mu.Unlock()
	s.log.Info("Downloads stopped")
	s.notifyProgress()
}

// SkipCurrent abandons the item in flight on the next poll tick. The rest
// of the batch continues.
func (s *Service) SkipCurrent() {
	s.skipSig.Store(true)
	s.log.Info("Skipping current download")
}

func (s *Service) gatherLinks(ctx context.Context, linkIDs []string) ([]*domain.Link, error) {
	if len(linkIDs) == 0 {
		return s.store.ListByStatus(ctx, domain.StatusToDownload)
	}

	links := make([]*domain.Link, 0, len(linkIDs))
	for _, id := range linkIDs {
		link, err := s.store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrLinkNotFound) {
				s.log.WithField("link_id", id).Warn("Skipping unknown link id")
				continue
			}
			return nil, err
		}
		if link.Deleted {
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

// worker processes the batch strictly sequentially. Any panic from an item
// is contained there; a panic at this scope is logged and the run still
// returns to idle.
func (s *Service) worker(ctx context.Context, links []*domain.Link) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("Download worker failed")
		}
		s.mu.Lock()
		s.progress.Status = RunStatusIdle
		s.progress.CurrentLink = nil
		s.progress.CurrentOperation = "Idle"
		s.mu.Unlock()
		s.running.Store(false)
		s.notifyProgress()
	}()

	for _, link := range links {
		if s.stopSig.Load() {
			break
		}

		// Pause is honored only between items; keep watching for stop
		// while suspended.
		for s.pauseSig.Load() && !s.stopSig.Load() {
			time.Sleep(s.tick)
		}
		if s.stopSig.Load() {
			break
		}

		s.processItem(ctx, link)
	}
}

// processItem runs one link through the tool and writes the final record
// back to the store.
func (s *Service) processItem(ctx context.Context, link *domain.Link) {
	log := s.log.WithField("url", link.URL)
	success := false

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Download item failed")
			success = false
			link.Status = domain.StatusError
			link.ErrorMessage = fmt.Sprintf("internal error: %v", r)
			if err := s.saveLink(ctx, link); err != nil {
				log.WithError(err).Error("Failed to save link after panic")
			}
		}

		s.mu.Lock()
		if success {
			s.progress.CompletedLinks++
		} else {
			s.progress.FailedLinks++
		}
		s.mu.Unlock()

		s.notifyCompletion(link.ID, success)
		s.skipSig.Store(false)
		s.notifyProgress()
	}()

	link.Status = domain.StatusDownloading
	link.ErrorMessage = ""
	if err := s.saveLink(ctx, link); err != nil {
		log.WithError(err).Error("Failed to mark link downloading")
	}

	s.mu.Lock()
	s.progress.CurrentLink = link
	s.progress.CurrentOperation = "Downloading " + link.URL
	s.progress.ImagesDownloaded = 0
	s.mu.Unlock()
	s.notifyProgress()

	status := s.runTool(ctx, link)
	success = status == domain.StatusDownloaded

	link.Status = status
	link.ProcessedAt = time.Now()
	if status == domain.StatusDownloaded {
		link.DownloadedAt = time.Now()
	}
	if err := s.saveLink(ctx, link); err != nil {
		log.WithError(err).Error("Failed to save link result")
	}

	log.WithFields(logrus.Fields{"status": status, "images": link.ImagesCount}).Info("Download finished")
}

// runTool spawns the external tool for one link, supervises it at the poll
// interval, and returns the final status. It fills in the link's image
// count, file size, and error message as side effects.
func (s *Service) runTool(ctx context.Context, link *domain.Link) domain.Status {
	log := s.log.WithField("url", link.URL)

	cmd, err := s.buildCommand(link.URL)
	if err != nil {
		link.ErrorMessage = err.Error()
		return domain.StatusError
	}
	log.WithField("command", strings.Join(cmd.Args, " ")).Debug("Starting download tool")

	pr, pw := io.Pipe()
	var stderrBuf bytes.Buffer
	cmd.Stdout = pw
	cmd.Stderr = io.MultiWriter(pw, &stderrBuf)

	if err := cmd.Start(); err != nil {
		pw.Close()
		link.ErrorMessage = fmt.Sprintf("failed to start %s: %v", s.tool.Command, err)
		return domain.StatusError
	}

	// Single reader drains the combined stream so the poll loop never
	// blocks on process I/O.
	lines := make(chan string, 1024)
	go func() {
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitCh <- err
	}()

	start := time.Now()
	images := 0
	last := ""
	var captured []string

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var exitErr error
polling:
	for {
		select {
		case exitErr = <-waitCh:
			break polling
		case <-ticker.C:
			if s.stopSig.Load() || s.skipSig.Load() {
				s.terminate(cmd, pr, waitCh, lines)
				log.Info("Download terminated")
				return domain.StatusSkipped
			}

			if s.limits.MaxTimePerLink > 0 && time.Since(start) > s.limits.MaxTimePerLink {
				log.Warn("Download time limit exceeded")
				if s.gateway.Decide(link, LimitTimeout) {
					// Deliberation time is not charged against the limit.
					start = time.Now()
				} else {
					s.terminate(cmd, pr, waitCh, lines)
					link.ErrorMessage = fmt.Sprintf("error(%s)", LimitTimeout)
					return domain.StatusToSkipLimit
				}
			}

			images, last = s.drainLines(lines, &captured, images, last)
		}
	}

	// The reader sees EOF once the process pipes close; collect whatever
	// it buffered after the last tick.
	for line := range lines {
		if line == last {
			continue
		}
		last = line
		captured = append(captured, line)
	}

	images = max(images, countImageEvents(captured))
	link.ImagesCount = images
	link.FileSizeMB = totalSizeMB(captured)

	s.mu.Lock()
	s.progress.ImagesDownloaded = images
	s.mu.Unlock()

	if s.limits.MaxImagesPerLink > 0 && images > s.limits.MaxImagesPerLink {
		log.WithField("images", images).Warn("Image count limit exceeded")
		if !s.gateway.Decide(link, LimitImageCount) {
			link.ErrorMessage = fmt.Sprintf("error(%s)", LimitImageCount)
			return domain.StatusToSkipLimit
		}
	}

	if s.limits.MaxFileSizeMB > 0 && link.FileSizeMB > s.limits.MaxFileSizeMB {
		log.WithField("size_mb", link.FileSizeMB).Warn("File size limit exceeded")
		if !s.gateway.Decide(link, LimitFileSize) {
			link.ErrorMessage = fmt.Sprintf("error(%s)", LimitFileSize)
			return domain.StatusToSkipLimit
		}
	}

	if exitErr == nil {
		return domain.StatusDownloaded
	}

	msg := strings.TrimSpace(stderrBuf.String())
	if msg == "" {
		msg = lastNonEmpty(captured)
	}
	if msg == "" {
		var ee *exec.ExitError
		if errors.As(exitErr, &ee) {
			msg = fmt.Sprintf("%s failed (code %d)", s.tool.Command, ee.ExitCode())
		} else {
			msg = exitErr.Error()
		}
	}
	link.ErrorMessage = msg
	log.WithField("error", msg).Error("Download tool failed")
	return domain.StatusError
}

// drainLines consumes every queued output line without blocking,
// suppressing immediate consecutive duplicates, counting image events, and
// publishing a snapshot per non-duplicate line.
func (s *Service) drainLines(lines <-chan string, captured *[]string, images int, last string) (int, string) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return images, last
			}
			if line == last {
				continue
			}
			last = line
			*captured = append(*captured, line)
			if isImageEvent(line) {
				images++
			}
			s.mu.Lock()
			s.progress.CurrentOperation = line
			s.progress.ImagesDownloaded = images
			s.mu.Unlock()
			s.notifyProgress()
		default:
			return images, last
		}
	}
}

// buildCommand assembles the tool invocation:
// <tool> <default-flags...> [-d <output-dir>] [--config <config-file>] <url>.
func (s *Service) buildCommand(url string) (*exec.Cmd, error) {
	args := slices.Clone(s.tool.DefaultArgs)

	if s.tool.OutputDir != "" {
		dir := s.tool.OutputDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(s.tool.BaseDir, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
		args = append(args, "-d", dir)
	}

	if s.tool.ConfigFile != "" {
		if _, err := os.Stat(s.tool.ConfigFile); err == nil {
			args = append(args, "--config", s.tool.ConfigFile)
		}
	}

	args = append(args, url)
	return exec.Command(s.tool.Command, args...), nil
}

// terminate kills the subprocess and reaps it. Closing the read side of the
// pipe unblocks exec's output copy, and queued lines are discarded while
// reaping so the reader goroutine can never wedge Wait on a full line queue.
func (s *Service) terminate(cmd *exec.Cmd, pr *io.PipeReader, waitCh <-chan error, lines <-chan string) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = pr.Close()

	for {
		select {
		case <-waitCh:
			for range lines {
			}
			return
		case _, ok := <-lines:
			if !ok {
				<-waitCh
				return
			}
		}
	}
}

func (s *Service) saveLink(ctx context.Context, link *domain.Link) error {
	return s.store.Save(ctx, link)
}

func (s *Service) snapshotLocked() Progress {
	snap := s.progress
	if snap.CurrentLink != nil {
		c := *snap.CurrentLink
		snap.CurrentLink = &c
	}
	return snap
}

func (s *Service) notifyProgress() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	obs := slices.Clone(s.progressObs)
	s.mu.Unlock()

	for _, o := range obs {
		s.safeNotify(func() { o.fn(snap) })
	}
}

func (s *Service) notifyCompletion(linkID string, success bool) {
	s.mu.Lock()
	obs := slices.Clone(s.completeObs)
	s.mu.Unlock()

	for _, o := range obs {
		s.safeNotify(func() { o.fn(linkID, success) })
	}
}

// safeNotify isolates observer panics so one bad callback cannot halt the
// worker or starve other observers.
func (s *Service) safeNotify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("Error in observer callback")
		}
	}()
	fn()
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
