package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/repository"
)

// CouponService answers per-user coupon eligibility
type CouponService struct {
	coupons repository.CouponRepository
	orders  repository.OrderRepository
	now     func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(coupons repository.CouponRepository, orders repository.OrderRepository, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{
		coupons: coupons,
		orders:  orders,
		now:     now,
	}
}

// List returns every published coupon; clients filter expired ones
func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx)
}

// Eligibility reports whether userID may redeem couponID
func (s *CouponService) Eligibility(ctx context.Context, userID, couponID string) (models.Eligibility, error) {
	coupon, err := s.coupons.Get(ctx, couponID)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return models.Eligibility{}, ErrCouponNotFound
		}
		return models.Eligibility{}, err
	}

	reason, err := s.check(ctx, userID, *coupon)
	if err != nil {
		return models.Eligibility{}, err
	}
	return models.Eligibility{Eligible: reason == "", Reason: reason}, nil
}

// check returns an empty reason when the user may redeem the coupon
func (s *CouponService) check(ctx context.Context, userID string, coupon models.Coupon) (string, error) {
	if coupon.Expired(s.now()) {
		return fmt.Sprintf("%s has expired", coupon.Code), nil
	}

	used, err := s.coupons.Redeemed(ctx, userID, coupon.ID)
	if err != nil {
		return "", err
	}
	if used {
		return fmt.Sprintf("You have already used %s", coupon.Code), nil
	}

	if coupon.NthOrder > 0 {
		placed, err := s.placedOrders(ctx, userID)
		if err != nil {
			return "", err
		}
		if placed != coupon.NthOrder-1 {
			return fmt.Sprintf("%s is only valid on your %s order", coupon.Code, ordinal(coupon.NthOrder)), nil
		}
	}

	return "", nil
}

// placedOrders counts the user's orders that were not cancelled or rejected
func (s *CouponService) placedOrders(ctx context.Context, userID string) (int, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, order := range orders {
		if order.Status != models.StatusCancelled && order.Status != models.StatusRejected {
			count++
		}
	}
	return count, nil
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	if n == 1 {
		return "first"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
