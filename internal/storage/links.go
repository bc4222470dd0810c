package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
)

const linkPrefix = "link:"

// BadgerLinkRepository implements LinkRepository on BadgerDB.
type BadgerLinkRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

func linkKey(id string) []byte {
	return []byte(linkPrefix + id)
}

// Add ingests a URL, reactivating a soft-deleted record with the same URL
// instead of creating a duplicate.
func (r *BadgerLinkRepository) Add(ctx context.Context, url, source, sourceFile string) (*domain.Link, error) {
	existing, err := r.GetByURL(ctx, url)
	if err != nil && err != ErrLinkNotFound {
		return nil, err
	}

	if existing != nil && !existing.Deleted {
		r.log.WithField("url", url).Debug("Link already exists")
		return existing, nil
	}

	if existing != nil {
		existing.Deleted = false
		existing.Status = domain.StatusPending
		existing.AddedAt = time.Now()
		existing.Source = source
		existing.SourceFile = sourceFile
		if err := r.Save(ctx, existing); err != nil {
			return nil, err
		}
		r.log.WithField("url", url).Info("Reactivated deleted link")
		return existing, nil
	}

	link := domain.NewLink(url, source, sourceFile)
	if err := r.Save(ctx, link); err != nil {
		return nil, err
	}
	r.log.WithField("url", url).Info("Added new link")
	return link, nil
}

// Save persists the full link record.
func (r *BadgerLinkRepository) Save(ctx context.Context, link *domain.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(linkKey(link.ID), data)
	})
	if err != nil {
		r.log.WithError(err).WithField("link_id", link.ID).Error("Failed to save link")
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

// GetByID returns the link with the given id, deleted or not.
func (r *BadgerLinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	var link domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(linkKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &link)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link %s: %w", id, err)
	}
	link.Status = domain.ParseStatus(string(link.Status))
	return &link, nil
}

// GetByURL returns the link with the given URL, preferring a non-deleted
// record when both exist.
func (r *BadgerLinkRepository) GetByURL(ctx context.Context, url string) (*domain.Link, error) {
	links, err := r.list(func(l *domain.Link) bool { return l.URL == url })
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrLinkNotFound
	}
	for _, l := range links {
		if !l.Deleted {
			return l, nil
		}
	}
	return links[0], nil
}

// UpdateStatus moves the link to the given status and stamps timestamps.
func (r *BadgerLinkRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	link, err := r.GetByID(ctx, id)
	if err != nil {
		r.log.WithError(err).WithField("link_id", id).Error("Link not found for status update")
		return err
	}

	link.Status = status
	link.ProcessedAt = time.Now()
	if status == domain.StatusDownloaded {
		link.DownloadedAt = time.Now()
	}

	if err := r.Save(ctx, link); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"link_id": id, "status": status}).Debug("Updated link status")
	return nil
}

// MarkDeleted soft-deletes the link.
func (r *BadgerLinkRepository) MarkDeleted(ctx context.Context, id string) error {
	link, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	link.Deleted = true
	if err := r.Save(ctx, link); err != nil {
		return err
	}
	r.log.WithField("url", link.URL).Info("Marked link as deleted")
	return nil
}

// ListActive returns all non-deleted links ordered by time added.
func (r *BadgerLinkRepository) ListActive(ctx context.Context) ([]*domain.Link, error) {
	return r.list(func(l *domain.Link) bool { return !l.Deleted })
}

// ListByStatus returns non-deleted links with one of the given statuses,
// ordered by time added.
func (r *BadgerLinkRepository) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Link, error) {
	return r.list(func(l *domain.Link) bool {
		return !l.Deleted && slices.Contains(statuses, l.Status)
	})
}

func (r *BadgerLinkRepository) list(keep func(*domain.Link) bool) ([]*domain.Link, error) {
	var links []*domain.Link

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(linkPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var link domain.Link
				if err := json.Unmarshal(val, &link); err != nil {
					return fmt.Errorf("failed to unmarshal link data for key %s: %w", string(item.Key()), err)
				}
				link.Status = domain.ParseStatus(string(link.Status))
				if keep(&link) {
					links = append(links, &link)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to list links")
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].AddedAt.Before(links[j].AddedAt)
	})
	return links, nil
}
