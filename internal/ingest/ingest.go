package ingest

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
	"linkgarden/internal/storage"
)

// Sources recorded on ingested links.
const (
	SourceManual    = "manual"
	SourceFile      = "file"
	SourceClipboard = "clipboard"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs pulls http(s) URLs out of free text, in order of appearance,
// with trailing sentence punctuation stripped.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if u := strings.TrimRight(m, ".,;:!?"); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Service feeds the link store from raw text and link files.
type Service struct {
	links storage.LinkRepository
	log   logrus.FieldLogger
}

// NewService creates an ingestion service.
func NewService(links storage.LinkRepository, logger logrus.FieldLogger) *Service {
	return &Service{
		links: links,
		log:   logger.WithField("component", "ingest"),
	}
}

// AddFromText extracts URLs from text and adds each to the store. Existing
// non-deleted links are returned as-is; soft-deleted ones are reactivated.
func (s *Service) AddFromText(ctx context.Context, text, source, sourceFile string) ([]*domain.Link, error) {
	urls := ExtractURLs(text)
	added := make([]*domain.Link, 0, len(urls))
	for _, url := range urls {
		link, err := s.links.Add(ctx, url, source, sourceFile)
		if err != nil {
			return added, err
		}
		added = append(added, link)
	}
	s.log.WithFields(logrus.Fields{"source": source, "count": len(added)}).Info("Added links from text")
	return added, nil
}

// AddFromFile reads a UTF-8 text file and ingests every URL found in it.
func (s *Service) AddFromFile(ctx context.Context, path string) ([]*domain.Link, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Error("Failed to read link file")
		return nil, fmt.Errorf("failed to read link file %s: %w", path, err)
	}
	return s.AddFromText(ctx, string(data), SourceFile, path)
}
