package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// MenuSource fetches the restaurant menu
type MenuSource interface {
	GetMenu(ctx context.Context) ([]models.Category, error)
}

// Entry is a menu item together with its category's availability
type Entry struct {
	Item            models.MenuItem
	CategoryEnabled bool
}

// Orderable reports whether the item can be added to a cart
func (e Entry) Orderable() bool {
	return e.Item.Orderable(e.CategoryEnabled)
}

// Filter narrows Items; the zero value matches everything
type Filter struct {
	VegOnly       bool
	Category      string
	AvailableOnly bool
}

// Mirror holds the last menu fetched from the catalog service
type Mirror struct {
	source MenuSource
	log    *slog.Logger

	mu         sync.RWMutex
	categories []models.Category
	index      map[string]Entry
}

// NewMirror creates an empty mirror
func NewMirror(source MenuSource, log *slog.Logger) *Mirror {
	if log == nil {
		log = logger.Discard()
	}
	return &Mirror{
		source: source,
		log:    log.With("component", "catalog"),
		index:  make(map[string]Entry),
	}
}

// Fetch replaces the mirror with the current menu. On failure the previous
// contents are kept and the error wraps ErrCatalogUnavailable.
func (m *Mirror) Fetch(ctx context.Context) ([]models.Category, error) {
	categories, err := m.source.GetMenu(ctx)
	if err != nil {
		m.log.Warn("menu fetch failed, keeping previous catalog", "error", err)
		return m.Categories(), fmt.Errorf("%w: %w", apperror.ErrCatalogUnavailable, err)
	}

	index := make(map[string]Entry)
	for _, category := range categories {
		for _, item := range category.Items {
			if item.Category == "" {
				item.Category = category.Name
			}
			index[item.ID] = Entry{Item: item, CategoryEnabled: category.Enabled}
		}
	}

	m.mu.Lock()
	m.categories = categories
	m.index = index
	m.mu.Unlock()

	m.log.Info("catalog refreshed", "categories", len(categories), "items", len(index))
	return m.Categories(), nil
}

// Lookup returns the entry for an item id
func (m *Mirror) Lookup(id string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.index[id]
	return entry, ok
}

// Categories returns a copy of the mirrored categories in server order
func (m *Mirror) Categories() []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Category, len(m.categories))
	for i, category := range m.categories {
		out[i] = category
		out[i].Items = append([]models.MenuItem(nil), category.Items...)
	}
	return out
}

// Items lists mirrored items matching the filter, in server order
func (m *Mirror) Items(filter Filter) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []Entry
	for _, category := range m.categories {
		if filter.Category != "" && category.Name != filter.Category {
			continue
		}
		for _, item := range category.Items {
			entry := m.index[item.ID]
			if filter.VegOnly && entry.Item.Diet != models.DietVeg {
				continue
			}
			if filter.AvailableOnly && !entry.Orderable() {
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries
}
