// Package storefront wires the catalog, cart, coupon, pricing and order components into
// the single session every screen of the app shares.
package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/cart"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/catalog"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/config"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/coupon"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/order"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// Backend is the set of remote services a session talks to
type Backend interface {
	catalog.MenuSource
	cart.Store
	coupon.Service
	order.Service
}

// Options tune a session
type Options struct {
	DeliveryFee     int64
	TaxRate         decimal.Decimal
	PollInterval    time.Duration
	RefreshInterval time.Duration
	PrepWindow      time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
	Metrics         *metrics.Collector
}

// OptionsFromConfig maps loaded configuration onto session options
func OptionsFromConfig(cfg *config.Config, log *slog.Logger, m *metrics.Collector) (Options, error) {
	rate, err := cfg.Pricing.Rate()
	if err != nil {
		return Options{}, err
	}
	return Options{
		DeliveryFee:     cfg.Pricing.DeliveryFee,
		TaxRate:         rate,
		PollInterval:    cfg.Tracking.PollInterval,
		RefreshInterval: cfg.Tracking.RefreshInterval,
		PrepWindow:      cfg.Tracking.PrepWindow,
		Logger:          log,
		Metrics:         m,
	}, nil
}

// Session is the signed-in customer's storefront state
type Session struct {
	UserID  string
	Catalog *catalog.Mirror
	Cart    *cart.Reconciler
	Coupons *coupon.Validator
	Orders  *order.Submitter
	Tracker *order.Tracker

	pricing pricing.Calculator
	log     *slog.Logger

	mu      sync.Mutex
	applied *models.AppliedCoupon
}

// New builds a session for userID
func New(userID string, backend Backend, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	calc := pricing.New(opts.DeliveryFee, opts.TaxRate)
	mirror := catalog.NewMirror(backend, log)
	coupons := coupon.NewValidator(backend,
		coupon.WithClock(now),
		coupon.WithLogger(log),
		coupon.WithMetrics(opts.Metrics),
	)

	return &Session{
		UserID:  userID,
		Catalog: mirror,
		Cart: cart.NewReconciler(userID, backend, mirror,
			cart.WithLogger(log),
			cart.WithMetrics(opts.Metrics),
		),
		Coupons: coupons,
		Orders: order.NewSubmitter(backend, coupons, calc,
			order.WithSubmitClock(now),
			order.WithSubmitLogger(log),
			order.WithSubmitMetrics(opts.Metrics),
		),
		Tracker: order.NewTracker(userID, backend,
			order.WithIntervals(opts.PollInterval, opts.RefreshInterval),
			order.WithPrepWindow(opts.PrepWindow),
			order.WithTrackClock(now),
			order.WithTrackLogger(log),
			order.WithTrackMetrics(opts.Metrics),
		),
		pricing: calc,
		log:     log.With("component", "session", "user_id", userID),
	}
}

// Start fetches the menu and the authoritative cart. Both degrade to empty on
// failure; the combined error is returned so the caller can tell the user.
func (s *Session) Start(ctx context.Context) error {
	var result *multierror.Error

	if _, err := s.Catalog.Fetch(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := s.Cart.LoadRemote(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("load cart: %w", err))
	}

	return result.ErrorOrNil()
}

// ApplyCoupon validates a typed code against the current cart and attaches it,
// replacing any coupon applied before
func (s *Session) ApplyCoupon(ctx context.Context, code string) (models.AppliedCoupon, error) {
	c, err := s.Coupons.Lookup(ctx, code)
	if err != nil {
		return models.AppliedCoupon{}, err
	}

	applied, err := s.Coupons.Validate(ctx, c, s.Cart.Snapshot().Subtotal(), s.UserID)
	if err != nil {
		return models.AppliedCoupon{}, err
	}

	s.mu.Lock()
	s.applied = &applied
	s.mu.Unlock()

	s.log.Info("coupon applied", "code", applied.Coupon.Code, "discount", applied.DiscountAmount)
	return applied, nil
}

// RemoveCoupon detaches the applied coupon, if any
func (s *Session) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = nil
}

// AppliedCoupon returns the attached coupon or nil
func (s *Session) AppliedCoupon() *models.AppliedCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	applied := *s.applied
	return &applied
}

// Totals prices the current cart. A coupon that has expired or whose minimum
// is no longer met is detached here, so it is neither shown nor submitted afterwards.
func (s *Session) Totals() pricing.Result {
	snapshot := s.Cart.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied != nil {
		if err := s.Coupons.CheckLocal(s.applied.Coupon, snapshot.Subtotal()); err != nil {
			s.log.Info("coupon detached", "code", s.applied.Coupon.Code,
				"subtotal", snapshot.Subtotal(), "reason", err)
			s.applied = nil

			result := s.pricing.Compute(snapshot, nil)
			result.CouponDetached = true
			result.DetachReason = apperror.Message(err)
			return result
		}
	}

	return s.pricing.Compute(snapshot, s.applied)
}

// Checkout places the order for the current cart. On success the cart is
// cleared locally and remotely and the tracker follows the new order.
func (s *Session) Checkout(ctx context.Context, address, instructions string, payment models.PaymentMethod) (string, error) {
	s.Totals()

	orderID, err := s.Orders.Submit(ctx, order.Submission{
		Cart:         s.Cart.Snapshot(),
		Address:      address,
		Instructions: instructions,
		Coupon:       s.AppliedCoupon(),
		Payment:      payment,
	})
	if err != nil {
		return "", err
	}

	s.Cart.Clear(ctx)
	s.RemoveCoupon()
	s.Tracker.Track(orderID)
	return orderID, nil
}
