// Package pricing computes cart totals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

// Calculator holds the restaurant's flat delivery fee and tax rate
type Calculator struct {
	DeliveryFee int64
	TaxRate     decimal.Decimal
}

// Result is a priced cart. CouponDetached is set when an applied coupon no
// longer qualifies and contributed no discount; DetachReason says why.
type Result struct {
	Totals         models.Totals
	CouponDetached bool
	DetachReason   string
}

// New creates a calculator
func New(deliveryFee int64, taxRate decimal.Decimal) Calculator {
	return Calculator{DeliveryFee: deliveryFee, TaxRate: taxRate}
}

// Tax rounds subtotal*rate half-up to a whole currency unit
func (c Calculator) Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(c.TaxRate).Round(0).IntPart()
}

// Compute prices a cart with an optional applied coupon. It has no side effects.
func (c Calculator) Compute(cart models.Cart, applied *models.AppliedCoupon) Result {
	subtotal := cart.Subtotal()
	tax := c.Tax(subtotal)
	gross := subtotal + c.DeliveryFee + tax

	var (
		discount int64
		detached bool
		reason   string
	)
	if applied != nil {
		if subtotal < applied.Coupon.MinOrderAmount {
			detached = true
			reason = "minimum order no longer met"
		} else {
			discount = min(max(applied.DiscountAmount, 0), max(gross, 0))
		}
	}

	return Result{
		Totals: models.Totals{
			Subtotal:    subtotal,
			DeliveryFee: c.DeliveryFee,
			Tax:         tax,
			Discount:    discount,
			Total:       max(0, gross-discount),
		},
		CouponDetached: detached,
		DetachReason:   reason,
	}
}
