package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
	"linkgarden/internal/storage"
)

// Service is the classification engine: it evaluates the priority-ordered
// filter set against link URLs and applies the winning filter's action.
type Service struct {
	filters storage.FilterRepository
	links   storage.LinkRepository
	log     logrus.FieldLogger
}

// NewService creates the engine and runs the numeric-id allocation pass:
// any persisted filter without a numeric id receives max(existing)+1 and is
// written back before first use, so display ids stay stable across
// restarts.
func NewService(ctx context.Context, filters storage.FilterRepository, links storage.LinkRepository, logger logrus.FieldLogger) (*Service, error) {
	s := &Service{
		filters: filters,
		links:   links,
		log:     logger.WithField("component", "filter"),
	}
	if err := s.ensureNumericIDs(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureNumericIDs(ctx context.Context) error {
	all, err := s.filters.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load filters: %w", err)
	}

	next := 0
	for _, f := range all {
		if f.NumericID > next {
			next = f.NumericID
		}
	}

	for _, f := range all {
		if f.NumericID != 0 {
			continue
		}
		next++
		f.NumericID = next
		if err := s.filters.Update(ctx, f); err != nil {
			return fmt.Errorf("failed to persist numeric id for filter %s: %w", f.ID, err)
		}
		s.log.WithFields(logrus.Fields{"name": f.Name, "numeric_id": next}).Info("Assigned filter numeric id")
	}
	return nil
}

// Filters returns the current filter set in evaluation order.
func (s *Service) Filters(ctx context.Context) ([]*domain.Filter, error) {
	return s.filters.List(ctx)
}

// FindMatching returns the first filter matching the URL in descending
// priority order, or nil when none matches.
func (s *Service) FindMatching(ctx context.Context, url string) (*domain.Filter, error) {
	all, err := s.filters.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if f.Matches(url) {
			s.log.WithFields(logrus.Fields{"url": url, "filter": f.Name}).Debug("URL matched filter")
			return f, nil
		}
	}
	s.log.WithField("url", url).Debug("No filter matched URL")
	return nil, nil
}

// ClassifyLink evaluates the filter set against one link and applies the
// winning action: download and skip move the status, delete soft-deletes
// the link with its status unchanged. Links with no matching filter are
// left as they are.
func (s *Service) ClassifyLink(ctx context.Context, link *domain.Link) (*domain.Filter, error) {
	matched, err := s.FindMatching(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, nil
	}

	link.FilterMatched = matched.NumericID
	link.ProcessedAt = time.Now()

	switch matched.Action {
	case domain.ActionDownload:
		link.Status = domain.StatusToDownload
	case domain.ActionSkip:
		link.Status = domain.StatusToSkip
	case domain.ActionDelete:
		link.Deleted = true
	}

	if err := s.links.Save(ctx, link); err != nil {
		return nil, err
	}
	return matched, nil
}

// ClassifyPending runs a classification pass over every link waiting for
// one (pending or to_reprocess). It returns the number of links a filter
// acted on.
func (s *Service) ClassifyPending(ctx context.Context) (int, error) {
	links, err := s.links.ListByStatus(ctx, domain.StatusPending, domain.StatusToReprocess)
	if err != nil {
		return 0, err
	}

	classified := 0
	for _, link := range links {
		matched, err := s.ClassifyLink(ctx, link)
		if err != nil {
			return classified, err
		}
		if matched != nil {
			classified++
		}
	}
	s.log.WithFields(logrus.Fields{"total": len(links), "classified": classified}).Info("Classification pass finished")
	return classified, nil
}

// Reprocess flags a link for another classification pass. Any active
// status may re-enter the machine this way.
func (s *Service) Reprocess(ctx context.Context, linkID string) error {
	return s.links.UpdateStatus(ctx, linkID, domain.StatusToReprocess)
}
