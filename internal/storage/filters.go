package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
)

const filterPrefix = "filter:"

// BadgerFilterRepository implements FilterRepository on BadgerDB.
type BadgerFilterRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

func filterKey(id string) []byte {
	return []byte(filterPrefix + id)
}

// List returns all filters ordered by descending priority. Ties keep
// numeric-id (insertion) order, so evaluation order is stable across loads.
func (r *BadgerFilterRepository) List(ctx context.Context) ([]*domain.Filter, error) {
	var filters []*domain.Filter

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(filterPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var f domain.Filter
				if err := json.Unmarshal(val, &f); err != nil {
					return fmt.Errorf("failed to unmarshal filter data for key %s: %w", string(item.Key()), err)
				}
				filters = append(filters, &f)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to list filters")
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}

	sort.SliceStable(filters, func(i, j int) bool {
		if filters[i].Priority != filters[j].Priority {
			return filters[i].Priority > filters[j].Priority
		}
		if filters[i].NumericID != filters[j].NumericID {
			return filters[i].NumericID < filters[j].NumericID
		}
		return filters[i].CreatedAt.Before(filters[j].CreatedAt)
	})
	return filters, nil
}

// Add persists a new filter.
func (r *BadgerFilterRepository) Add(ctx context.Context, f *domain.Filter) error {
	if err := r.save(f); err != nil {
		return err
	}
	r.log.WithField("name", f.Name).Info("Added filter")
	return nil
}

// Update persists changes to an existing filter.
func (r *BadgerFilterRepository) Update(ctx context.Context, f *domain.Filter) error {
	if _, err := r.getByID(f.ID); err != nil {
		r.log.WithField("filter_id", f.ID).Warn("Filter not found for update")
		return err
	}
	f.ModifiedAt = time.Now()
	if err := r.save(f); err != nil {
		return err
	}
	r.log.WithField("name", f.Name).Info("Updated filter")
	return nil
}

// Remove deletes the filter record. Filter removal is a hard delete; only
// links are soft-deleted.
func (r *BadgerFilterRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.getByID(id); err != nil {
		r.log.WithField("filter_id", id).Warn("Filter not found for removal")
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(filterKey(id))
	})
	if err != nil {
		r.log.WithError(err).WithField("filter_id", id).Error("Failed to remove filter")
		return fmt.Errorf("failed to remove filter: %w", err)
	}
	r.log.WithField("filter_id", id).Info("Removed filter")
	return nil
}

// Move bumps a filter's priority by one step. Moving the first filter up or
// the last filter down is a no-op.
func (r *BadgerFilterRepository) Move(ctx context.Context, id string, direction MoveDirection) error {
	filters, err := r.List(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, f := range filters {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrFilterNotFound
	}

	switch {
	case direction == MoveUp && idx > 0:
		filters[idx].Priority++
	case direction == MoveDown && idx < len(filters)-1:
		filters[idx].Priority--
	default:
		return nil
	}
	return r.Update(ctx, filters[idx])
}

func (r *BadgerFilterRepository) getByID(id string) (*domain.Filter, error) {
	var f domain.Filter
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(filterKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrFilterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter %s: %w", id, err)
	}
	return &f, nil
}

func (r *BadgerFilterRepository) save(f *domain.Filter) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal filter: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(filterKey(f.ID), data)
	})
	if err != nil {
		r.log.WithError(err).WithField("filter_id", f.ID).Error("Failed to save filter")
		return fmt.Errorf("failed to save filter: %w", err)
	}
	return nil
}
