package storage

import (
	"context"
	"errors"

	"linkgarden/internal/domain"
)

// ErrLinkNotFound is returned when a link id or URL has no record.
var ErrLinkNotFound = errors.New("link not found")

// ErrFilterNotFound is returned when a filter id has no record.
var ErrFilterNotFound = errors.New("filter not found")

// LinkRepository defines the link store contract consumed by the
// classification engine and the download orchestrator. Implementations must
// be durable per call: when a method returns without error the change has
// been persisted.
type LinkRepository interface {
	// Add ingests a URL. If a non-deleted link with the same URL exists it
	// is returned unchanged; if a soft-deleted one exists it is reactivated
	// as pending instead of duplicated.
	Add(ctx context.Context, url, source, sourceFile string) (*domain.Link, error)

	// Save persists the full link record.
	Save(ctx context.Context, link *domain.Link) error

	GetByID(ctx context.Context, id string) (*domain.Link, error)
	GetByURL(ctx context.Context, url string) (*domain.Link, error)

	// UpdateStatus moves the link to the given status and stamps the
	// processed (and, for downloaded, the downloaded) timestamp.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error

	// MarkDeleted soft-deletes the link; the record stays in storage.
	MarkDeleted(ctx context.Context, id string) error

	// ListActive returns all non-deleted links.
	ListActive(ctx context.Context) ([]*domain.Link, error)

	// ListByStatus returns non-deleted links whose status is one of the
	// given statuses.
	ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Link, error)
}

// FilterRepository defines the filter store contract consumed by the
// classification engine.
type FilterRepository interface {
	// List returns all filters ordered by descending priority. Ties keep
	// insertion order (numeric id order).
	List(ctx context.Context) ([]*domain.Filter, error)

	Add(ctx context.Context, f *domain.Filter) error
	Update(ctx context.Context, f *domain.Filter) error
	Remove(ctx context.Context, id string) error

	// Move bumps a filter's priority up or down by one and persists it.
	Move(ctx context.Context, id string, direction MoveDirection) error
}

// MoveDirection is the direction of a filter priority move.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)
