package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

var (
	ErrCouponNotFound = errors.New("coupon not found")
)

// CouponRepository defines the interface for coupon data access
type CouponRepository interface {
	List(ctx context.Context) ([]models.Coupon, error)
	Get(ctx context.Context, id string) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeemed(ctx context.Context, userID, couponID string) (bool, error)
	MarkRedeemed(ctx context.Context, userID, couponID string) error
}

// InMemoryCouponRepository keeps coupons and per-user redemptions in memory.
// Redemption lookups go through a bloom filter first so users who never
// redeemed anything skip the map entirely.
type InMemoryCouponRepository struct {
	mu       sync.RWMutex
	coupons  map[string]models.Coupon
	redeemed map[string]struct{}
	seen     *bloom.BloomFilter
}

// NewInMemoryCouponRepository creates a coupon repository holding the given coupons
func NewInMemoryCouponRepository(coupons []models.Coupon) *InMemoryCouponRepository {
	repo := &InMemoryCouponRepository{
		coupons:  make(map[string]models.Coupon, len(coupons)),
		redeemed: make(map[string]struct{}),
		seen:     bloom.NewWithEstimates(100_000, 0.01),
	}
	repo.Upsert(coupons...)
	return repo
}

// DefaultCoupons are the restaurant's standing offers
func DefaultCoupons(now time.Time) []models.Coupon {
	return []models.Coupon{
		{
			ID:             "c1",
			Code:           "SAVE50",
			Description:    "Flat ₹50 off on orders above ₹199",
			DiscountAmount: 50,
			MinOrderAmount: 199,
			ExpiresAt:      now.AddDate(1, 0, 0),
		},
		{
			ID:             "c2",
			Code:           "NEWUSER75",
			Description:    "₹75 off for new users",
			DiscountAmount: 75,
			MinOrderAmount: 299,
			ExpiresAt:      now.AddDate(1, 0, 0),
			NthOrder:       1,
		},
	}
}

// Upsert adds or replaces coupons by ID
func (r *InMemoryCouponRepository) Upsert(coupons ...models.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range coupons {
		r.coupons[c.ID] = c
	}
}

// List returns every coupon ordered by minimum order amount, then code
func (r *InMemoryCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coupons := make([]models.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		coupons = append(coupons, c)
	}
	sort.Slice(coupons, func(i, j int) bool {
		if coupons[i].MinOrderAmount != coupons[j].MinOrderAmount {
			return coupons[i].MinOrderAmount < coupons[j].MinOrderAmount
		}
		return coupons[i].Code < coupons[j].Code
	})
	return coupons, nil
}

// Get returns a coupon by ID
func (r *InMemoryCouponRepository) Get(ctx context.Context, id string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

// GetByCode returns a coupon by its code, ignoring case
func (r *InMemoryCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.coupons {
		if strings.ToUpper(c.Code) == code {
			found := c
			return &found, nil
		}
	}
	return nil, ErrCouponNotFound
}

// Redeemed reports whether the user already used the coupon
func (r *InMemoryCouponRepository) Redeemed(ctx context.Context, userID, couponID string) (bool, error) {
	key := redemptionKey(userID, couponID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.seen.TestString(key) {
		return false, nil
	}
	_, ok := r.redeemed[key]
	return ok, nil
}

// MarkRedeemed records that the user used the coupon
func (r *InMemoryCouponRepository) MarkRedeemed(ctx context.Context, userID, couponID string) error {
	key := redemptionKey(userID, couponID)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen.AddString(key)
	r.redeemed[key] = struct{}{}
	return nil
}

func redemptionKey(userID, couponID string) string {
	return userID + "\x00" + couponID
}
