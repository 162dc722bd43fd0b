package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderExists       = errors.New("order already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, next models.OrderStatus) (*models.Order, error)
}

// InMemoryOrderRepository implements OrderRepository with in-memory storage
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewInMemoryOrderRepository creates an empty order store
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create stores a new order
func (r *InMemoryOrderRepository) Create(ctx context.Context, order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ErrOrderExists
	}
	r.orders[order.ID] = copyOrder(order)
	return nil
}

// Get returns an order by its ID
func (r *InMemoryOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	found := copyOrder(order)
	return &found, nil
}

// ListByUser returns the user's orders, newest first
func (r *InMemoryOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// UpdateStatus moves an order to next if the transition is allowed
func (r *InMemoryOrderRepository) UpdateStatus(ctx context.Context, id string, next models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	order.Status = next
	r.orders[id] = order
	updated := copyOrder(order)
	return &updated, nil
}

func copyOrder(order models.Order) models.Order {
	order.Lines = append([]models.OrderLine(nil), order.Lines...)
	return order
}
