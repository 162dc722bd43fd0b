package models

import "time"

// Coupon is a flat discount offered by the restaurant
type Coupon struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	DiscountAmount int64     `json:"discountAmount"`
	MinOrderAmount int64     `json:"minOrderAmount"`
	ExpiresAt      time.Time `json:"expiryDate"`
	// NthOrder restricts the coupon to the user's Nth order when non-zero
	NthOrder int `json:"nthOrder,omitempty"`
}

// Expired reports whether the coupon can no longer be offered or honored
func (c Coupon) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// AppliedCoupon is a validated coupon attached to a cart.
// DiscountAmount is captured at validation time.
type AppliedCoupon struct {
	Coupon         Coupon    `json:"coupon"`
	DiscountAmount int64     `json:"discountAmount"`
	ValidatedAt    time.Time `json:"validatedAt"`
}

// Eligibility is the remote per-user verdict for a coupon
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
