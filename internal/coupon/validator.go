package coupon

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// Service is the remote coupon service
type Service interface {
	GetCoupons(ctx context.Context) ([]models.Coupon, error)
	CouponEligibility(ctx context.Context, userID, couponID string) (models.Eligibility, error)
}

// Validator decides whether a coupon may be applied to a cart
type Validator struct {
	svc     Service
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Collector
}

// Option configures a Validator
type Option func(*Validator)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(v *Validator) { v.log = log }
}

// WithMetrics counts validation outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(v *Validator) { v.metrics = m }
}

// NewValidator creates a validator backed by the remote coupon service
func NewValidator(svc Service, opts ...Option) *Validator {
	v := &Validator{
		svc: svc,
		now: time.Now,
		log: logger.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.With("component", "coupon")
	return v
}

// Offered lists the coupons a customer may pick from. Expired coupons are never listed.
func (v *Validator) Offered(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := v.svc.GetCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := v.now()
	offered := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.Expired(now) {
			continue
		}
		offered = append(offered, c)
	}
	return offered, nil
}

// Lookup resolves a code typed by the customer. Matching ignores case and surrounding spaces.
func (v *Validator) Lookup(ctx context.Context, code string) (models.Coupon, error) {
	code = normalize(code)
	if code == "" {
		return models.Coupon{}, apperror.Validation(apperror.ErrUnknownCoupon, "enter a coupon code")
	}

	coupons, err := v.svc.GetCoupons(ctx)
	if err != nil {
		return models.Coupon{}, err
	}

	for _, c := range coupons {
		if normalize(c.Code) != code {
			continue
		}
		if c.Expired(v.now()) {
			return models.Coupon{}, apperror.Validation(apperror.ErrCouponExpired, "coupon %s has expired", c.Code)
		}
		return c, nil
	}
	return models.Coupon{}, apperror.Validation(apperror.ErrUnknownCoupon, "coupon %s is not valid", strings.TrimSpace(code))
}

// CheckLocal runs the expiry and minimum order checks without contacting the server
func (v *Validator) CheckLocal(c models.Coupon, subtotal int64) error {
	if c.Expired(v.now()) {
		return apperror.Validation(apperror.ErrCouponExpired, "coupon %s has expired", c.Code)
	}
	if subtotal < c.MinOrderAmount {
		return apperror.Validation(apperror.ErrMinimumNotMet,
			"minimum order of %d not met for %s, add %d more", c.MinOrderAmount, c.Code, c.MinOrderAmount-subtotal)
	}
	return nil
}

// Validate checks expiry, then the minimum order, then the per-user eligibility rules
// held by the server, stopping at the first failure. The discount is captured as of now.
func (v *Validator) Validate(ctx context.Context, c models.Coupon, subtotal int64, userID string) (models.AppliedCoupon, error) {
	if err := v.CheckLocal(c, subtotal); err != nil {
		v.count("rejected_local")
		v.log.Info("coupon rejected", "code", c.Code, "subtotal", subtotal, "reason", err)
		return models.AppliedCoupon{}, err
	}

	verdict, err := v.svc.CouponEligibility(ctx, userID, c.ID)
	if err != nil {
		v.count("error")
		return models.AppliedCoupon{}, err
	}
	if !verdict.Eligible {
		reason := verdict.Reason
		if reason == "" {
			reason = apperror.ErrCouponIneligible.Error()
		}
		v.count("rejected_remote")
		v.log.Info("coupon rejected by server", "code", c.Code, "reason", reason)
		return models.AppliedCoupon{}, apperror.Rejected(0, reason)
	}

	v.count("accepted")
	return models.AppliedCoupon{
		Coupon:         c,
		DiscountAmount: c.DiscountAmount,
		ValidatedAt:    v.now(),
	}, nil
}

func (v *Validator) count(result string) {
	if v.metrics != nil {
		v.metrics.CouponValidations.WithLabelValues(result).Inc()
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
