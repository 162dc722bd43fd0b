package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/repository"
)

// OrderService handles order business logic
type OrderService struct {
	orders      repository.OrderRepository
	coupons     repository.CouponRepository
	menu        *MenuService
	eligibility *CouponService
	pricing     pricing.Calculator
	now         func() time.Time
	log         *slog.Logger

	// serializes coupon checks with redemption
	createMu sync.Mutex
}

// NewOrderService creates a new order service
func NewOrderService(
	orders repository.OrderRepository,
	coupons repository.CouponRepository,
	menu *MenuService,
	eligibility *CouponService,
	calc pricing.Calculator,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		coupons:     coupons,
		menu:        menu,
		eligibility: eligibility,
		pricing:     calc,
		now:         time.Now,
		log:         log,
	}
}

// CreateOrder validates the request against the current menu and coupon rules,
// recomputes the totals and stores the order with status ordered
func (s *OrderService) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		return nil, reject(ErrEmptyOrder, "your cart is empty")
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, reject(ErrMissingAddress, "a delivery address is required")
	}
	if !req.PaymentMethod.Valid() {
		return nil, reject(ErrInvalidPayment, "payment method must be cash or online")
	}

	cart := models.NewCart(req.UserID)
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, reject(ErrInvalidQuantity, "quantity for %s must be at least 1", line.Name)
		}
		if _, dup := cart.Lines[line.ItemID]; dup {
			return nil, reject(ErrInvalidItem, "item %s appears twice", line.ItemID)
		}

		item, err := s.menu.orderableItem(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Price != line.UnitPrice {
			return nil, reject(ErrPriceChanged, "the price of %s is now %d", item.Name, item.Price)
		}

		cart.Lines[item.ID] = models.CartLine{ItemID: item.ID, Name: item.Name, UnitPrice: item.Price, Quantity: line.Quantity}
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	var applied *models.AppliedCoupon
	if req.CouponCode != "" {
		coupon, err := s.redeemable(ctx, req.UserID, req.CouponCode, cart.Subtotal())
		if err != nil {
			return nil, err
		}
		applied = &models.AppliedCoupon{Coupon: *coupon, DiscountAmount: coupon.DiscountAmount}
	}

	totals := s.pricing.Compute(cart, applied).Totals
	if totals != req.Totals {
		s.log.Warn("order totals mismatch", "user_id", req.UserID, "expected", totals, "got", req.Totals)
		return nil, reject(ErrTotalsMismatch, "your order total changed to %d, please review and try again", totals.Total)
	}

	lines := make([]models.OrderLine, len(req.Lines))
	for i, line := range req.Lines {
		item := cart.Lines[line.ItemID]
		lines[i] = models.OrderLine{ItemID: item.ItemID, Name: item.Name, UnitPrice: item.UnitPrice, Quantity: item.Quantity, Note: line.Note}
	}

	order := models.Order{
		ID:            generateOrderID(),
		UserID:        req.UserID,
		Lines:         lines,
		Address:       strings.TrimSpace(req.Address),
		Totals:        totals,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
		Instructions:  req.Instructions,
		CreatedAt:     s.now().UTC(),
		Status:        models.StatusOrdered,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	if applied != nil {
		if err := s.coupons.MarkRedeemed(ctx, req.UserID, applied.Coupon.ID); err != nil {
			return nil, err
		}
	}

	s.log.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", totals.Total, "coupon", req.CouponCode)
	return &order, nil
}

func (s *OrderService) redeemable(ctx context.Context, userID, code string, subtotal int64) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, reject(ErrInvalidCoupon, "coupon %s is not valid", code)
	}

	reason, err := s.eligibility.check(ctx, userID, *coupon)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return nil, reject(ErrInvalidCoupon, "%s", reason)
	}
	if subtotal < coupon.MinOrderAmount {
		return nil, reject(ErrInvalidCoupon, "minimum order of %d not met for %s", coupon.MinOrderAmount, coupon.Code)
	}
	return coupon, nil
}

// ListByUser returns the user's orders, newest first
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Cancel cancels the user's order while it is still waiting for the restaurant
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, models.StatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, reject(ErrCancelNotAllowed, "order is already %s and can no longer be cancelled", order.Status)
		}
		return nil, err
	}

	s.log.Info("order cancelled", "order_id", orderID, "user_id", userID)
	return updated, nil
}

// Advance moves an order along the fulfillment progression. It stands in for
// the restaurant's own system in local runs and tests.
func (s *OrderService) Advance(ctx context.Context, orderID string, next models.OrderStatus) (*models.Order, error) {
	updated, err := s.orders.UpdateStatus(ctx, orderID, next)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	s.log.Info("order status changed", "order_id", orderID, "status", next)
	return updated, nil
}

// generateOrderID generates a unique order ID using UUID
func generateOrderID() string {
	return uuid.New().String()
}
