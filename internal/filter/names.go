package filter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/storage"
)

// NameResolver maps numeric filter ids to their current display names for
// external display collaborators. Refresh on demand; edits to a filter's
// name show up after the next Refresh.
type NameResolver struct {
	filters storage.FilterRepository
	log     logrus.FieldLogger

	mu    sync.RWMutex
	names map[int]string
}

// NewNameResolver creates an empty resolver; call Refresh before resolving.
func NewNameResolver(filters storage.FilterRepository, logger logrus.FieldLogger) *NameResolver {
	return &NameResolver{
		filters: filters,
		log:     logger.WithField("component", "filter_names"),
		names:   map[int]string{},
	}
}

// Refresh reloads the id-to-name map from the filter store.
func (r *NameResolver) Refresh(ctx context.Context) error {
	all, err := r.filters.List(ctx)
	if err != nil {
		r.log.WithError(err).Error("Failed to refresh filter names")
		return err
	}

	names := make(map[int]string, len(all))
	for _, f := range all {
		if f.NumericID == 0 {
			continue
		}
		name := strings.TrimSpace(f.Name)
		if name == "" {
			name = fmt.Sprintf("Unnamed_%d", f.NumericID)
		}
		names[f.NumericID] = name
	}

	r.mu.Lock()
	r.names = names
	r.mu.Unlock()
	return nil
}

// Resolve returns the display name for a numeric id. Zero resolves to the
// empty string; unknown ids fall back to Unnamed_<id>.
func (r *NameResolver) Resolve(numericID int) string {
	if numericID == 0 {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[numericID]; ok {
		return name
	}
	return fmt.Sprintf("Unnamed_%d", numericID)
}
