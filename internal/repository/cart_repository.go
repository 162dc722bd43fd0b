package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

// CartRepository stores each user's authoritative cart
type CartRepository interface {
	Lines(ctx context.Context, userID string) ([]models.CartLine, error)
	Apply(ctx context.Context, userID string, items map[string]*models.CartLine) error
}

// InMemoryCartRepository implements CartRepository with in-memory storage
type InMemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string]map[string]models.CartLine
}

// NewInMemoryCartRepository creates an empty cart store
func NewInMemoryCartRepository() *InMemoryCartRepository {
	return &InMemoryCartRepository{
		carts: make(map[string]map[string]models.CartLine),
	}
}

// Lines returns the user's cart lines ordered by item ID
func (r *InMemoryCartRepository) Lines(ctx context.Context, userID string) ([]models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart := r.carts[userID]
	lines := make([]models.CartLine, 0, len(cart))
	for _, line := range cart {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
	return lines, nil
}

// Apply overwrites the given lines with their new absolute values; a nil line is removed
func (r *InMemoryCartRepository) Apply(ctx context.Context, userID string, items map[string]*models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = make(map[string]models.CartLine)
		r.carts[userID] = cart
	}

	for itemID, line := range items {
		if line == nil {
			delete(cart, itemID)
			continue
		}
		stored := *line
		stored.ItemID = itemID
		cart[itemID] = stored
	}

	if len(cart) == 0 {
		delete(r.carts, userID)
	}
	return nil
}
