// Package order submits orders and tracks them through fulfillment.
package order

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// Service is the remote order service
type Service interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (string, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) error
}

// CouponChecker re-runs the checks that need no network
type CouponChecker interface {
	CheckLocal(c models.Coupon, subtotal int64) error
}

// Submission is everything the customer confirmed at checkout
type Submission struct {
	Cart         models.Cart
	Address      string
	Instructions string
	Coupon       *models.AppliedCoupon
	Payment      models.PaymentMethod
}

// Submitter places orders. Each call reaches the order service at most once.
type Submitter struct {
	svc     Service
	coupons CouponChecker
	pricing pricing.Calculator
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Collector

	submitting atomic.Bool
}

// SubmitterOption configures a Submitter
type SubmitterOption func(*Submitter)

// WithSubmitClock overrides the placement timestamp source
func WithSubmitClock(now func() time.Time) SubmitterOption {
	return func(s *Submitter) { s.now = now }
}

// WithSubmitLogger sets the logger
func WithSubmitLogger(log *slog.Logger) SubmitterOption {
	return func(s *Submitter) { s.log = log }
}

// WithSubmitMetrics counts submission outcomes
func WithSubmitMetrics(m *metrics.Collector) SubmitterOption {
	return func(s *Submitter) { s.metrics = m }
}

// NewSubmitter creates a submitter
func NewSubmitter(svc Service, coupons CouponChecker, calc pricing.Calculator, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		svc:     svc,
		coupons: coupons,
		pricing: calc,
		now:     time.Now,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "order_submitter")
	return s
}

// Validate checks the preconditions of a submission without contacting the server
func (s *Submitter) Validate(sub Submission) error {
	if sub.Cart.IsEmpty() {
		return apperror.Validation(apperror.ErrEmptyCart, "your cart is empty")
	}
	if strings.TrimSpace(sub.Address) == "" {
		return apperror.Validation(apperror.ErrMissingAddress, "choose a delivery address")
	}
	if !sub.Payment.Valid() {
		return apperror.Validation(apperror.ErrInvalidPayment, "choose cash or online payment")
	}
	if sub.Coupon != nil {
		if err := s.coupons.CheckLocal(sub.Coupon.Coupon, sub.Cart.Subtotal()); err != nil {
			return err
		}
	}
	return nil
}

// Submit freezes the submission into an order request and posts it once.
// Failures are returned as-is and never retried, since a lost response may
// still have created the order.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := s.Validate(sub); err != nil {
		s.count("invalid")
		return "", err
	}

	if !s.submitting.CompareAndSwap(false, true) {
		return "", apperror.Validation(apperror.ErrSubmissionInProgress, "your order is already being placed")
	}
	defer s.submitting.Store(false)

	req := s.freeze(sub)

	orderID, err := s.svc.CreateOrder(ctx, req)
	if err != nil {
		s.count("error")
		s.log.Error("order submission failed", "user_id", req.UserID, "total", req.Totals.Total, "error", err)
		return "", err
	}

	s.count("ok")
	s.log.Info("order placed", "order_id", orderID, "user_id", req.UserID, "total", req.Totals.Total, "lines", len(req.Lines))
	return orderID, nil
}

func (s *Submitter) freeze(sub Submission) models.OrderRequest {
	lines := make([]models.OrderLine, 0, len(sub.Cart.Lines))
	for _, line := range sub.Cart.SortedLines() {
		lines = append(lines, models.OrderLine{
			ItemID:    line.ItemID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Note:      line.Note,
		})
	}

	req := models.OrderRequest{
		UserID:        sub.Cart.UserID,
		Lines:         lines,
		Address:       strings.TrimSpace(sub.Address),
		Totals:        s.pricing.Compute(sub.Cart, sub.Coupon).Totals,
		PaymentMethod: sub.Payment,
		Instructions:  strings.TrimSpace(sub.Instructions),
		PlacedAt:      s.now().UTC(),
	}
	if sub.Coupon != nil {
		req.CouponCode = sub.Coupon.Coupon.Code
	}
	return req
}

func (s *Submitter) count(result string) {
	if s.metrics != nil {
		s.metrics.OrderSubmissions.WithLabelValues(result).Inc()
	}
}
