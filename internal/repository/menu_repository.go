package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

var (
	ErrItemNotFound = errors.New("menu item not found")
)

// MenuRepository defines the interface for menu data access
type MenuRepository interface {
	Menu(ctx context.Context) ([]models.Category, error)
	Item(ctx context.Context, id string) (models.MenuItem, bool, error)
}

// InMemoryMenuRepository implements MenuRepository with in-memory storage
type InMemoryMenuRepository struct {
	mu         sync.RWMutex
	categories []models.Category
}

// NewInMemoryMenuRepository creates a menu repository holding the given categories
func NewInMemoryMenuRepository(categories []models.Category) *InMemoryMenuRepository {
	repo := &InMemoryMenuRepository{}
	repo.Replace(categories)
	return repo
}

// DefaultMenu is the restaurant's seeded menu
func DefaultMenu() []models.Category {
	return []models.Category{
		{Name: "Biryani", Enabled: true, Items: []models.MenuItem{
			{ID: "1", Name: "Chicken Biryani", Description: "Bhimavaram style dum biryani", Price: 250, Diet: models.DietNonVeg, Enabled: true},
			{ID: "2", Name: "Mutton Biryani", Price: 320, Diet: models.DietNonVeg, Enabled: true},
			{ID: "3", Name: "Veg Biryani", Price: 180, Diet: models.DietVeg, Enabled: true},
			{ID: "4", Name: "Paneer Biryani", Price: 220, Diet: models.DietVeg, Enabled: false},
		}},
		{Name: "Starters", Enabled: true, Items: []models.MenuItem{
			{ID: "5", Name: "Paneer Tikka", Price: 190, Diet: models.DietVeg, Enabled: true},
			{ID: "6", Name: "Chicken 65", Price: 210, Diet: models.DietNonVeg, Enabled: true},
		}},
		{Name: "Curries", Enabled: true, Items: []models.MenuItem{
			{ID: "7", Name: "Butter Chicken", Price: 250, Diet: models.DietNonVeg, Enabled: true},
		}},
		{Name: "Breads", Enabled: true, Items: []models.MenuItem{
			{ID: "8", Name: "Butter Naan", Price: 40, Diet: models.DietVeg, Enabled: true},
		}},
		{Name: "Beverages", Enabled: true, Items: []models.MenuItem{
			{ID: "9", Name: "Coke", Price: 50, Diet: models.DietVeg, Enabled: true},
		}},
		{Name: "Desserts", Enabled: false, Items: []models.MenuItem{
			{ID: "10", Name: "Double Ka Meetha", Price: 90, Diet: models.DietVeg, Enabled: true},
		}},
	}
}

// Replace swaps the whole menu
func (r *InMemoryMenuRepository) Replace(categories []models.Category) {
	copied := make([]models.Category, len(categories))
	for i, category := range categories {
		copied[i] = category
		copied[i].Items = make([]models.MenuItem, len(category.Items))
		for j, item := range category.Items {
			item.Category = category.Name
			copied[i].Items[j] = item
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = copied
}

// Menu returns all categories in display order
func (r *InMemoryMenuRepository) Menu(ctx context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make([]models.Category, len(r.categories))
	for i, category := range r.categories {
		categories[i] = category
		categories[i].Items = append([]models.MenuItem(nil), category.Items...)
	}
	return categories, nil
}

// Item returns a menu item by its ID and whether its category is enabled
func (r *InMemoryMenuRepository) Item(ctx context.Context, id string) (models.MenuItem, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, category := range r.categories {
		for _, item := range category.Items {
			if item.ID == id {
				return item, category.Enabled, nil
			}
		}
	}
	return models.MenuItem{}, false, ErrItemNotFound
}
