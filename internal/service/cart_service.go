package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/repository"
)

// CartService validates and stores cart line writes
type CartService struct {
	carts repository.CartRepository
	menu  *MenuService
	log   *slog.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts repository.CartRepository, menu *MenuService, log *slog.Logger) *CartService {
	return &CartService{
		carts: carts,
		menu:  menu,
		log:   log,
	}
}

// Lines returns the user's cart
func (s *CartService) Lines(ctx context.Context, userID string) ([]models.CartLine, error) {
	return s.carts.Lines(ctx, userID)
}

// Update applies absolute line values. Names and prices always come from the menu.
// Lowering the quantity of an item that has since become unavailable is allowed.
func (s *CartService) Update(ctx context.Context, userID string, items map[string]*models.CartLine) error {
	current, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return err
	}
	held := make(map[string]int, len(current))
	for _, line := range current {
		held[line.ItemID] = line.Quantity
	}

	resolved := make(map[string]*models.CartLine, len(items))
	for itemID, line := range items {
		if line == nil {
			resolved[itemID] = nil
			continue
		}
		if line.Quantity < 1 {
			return reject(ErrInvalidQuantity, "quantity for item %s must be at least 1", itemID)
		}

		item, err := s.menu.orderableItem(ctx, itemID)
		switch {
		case err == nil:
		case errors.Is(err, ErrItemUnavailable) && line.Quantity <= held[itemID]:
		default:
			return err
		}

		resolved[itemID] = &models.CartLine{
			ItemID:    itemID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  line.Quantity,
			Note:      line.Note,
		}
	}

	if err := s.carts.Apply(ctx, userID, resolved); err != nil {
		return err
	}

	s.log.Debug("cart updated", "user_id", userID, "lines", len(resolved))
	return nil
}
