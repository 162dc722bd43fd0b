package service

import (
	"context"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/repository"
)

// MenuService handles business logic for the menu
type MenuService struct {
	repo repository.MenuRepository
}

// NewMenuService creates a new menu service
func NewMenuService(repo repository.MenuRepository) *MenuService {
	return &MenuService{
		repo: repo,
	}
}

// Menu returns every category with its items
func (s *MenuService) Menu(ctx context.Context) ([]models.Category, error) {
	return s.repo.Menu(ctx)
}

// orderableItem resolves an item and checks that it can be ordered right now
func (s *MenuService) orderableItem(ctx context.Context, id string) (models.MenuItem, error) {
	item, categoryEnabled, err := s.repo.Item(ctx, id)
	if err != nil {
		return models.MenuItem{}, reject(ErrInvalidItem, "item %s is not on the menu", id)
	}
	if !item.Orderable(categoryEnabled) {
		return item, reject(ErrItemUnavailable, "%s is currently unavailable", item.Name)
	}
	return item, nil
}
