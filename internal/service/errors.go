package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidItem      = errors.New("invalid item")
	ErrItemUnavailable  = errors.New("item unavailable")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrMissingAddress   = errors.New("delivery address is required")
	ErrInvalidPayment   = errors.New("payment method must be cash or online")
	ErrPriceChanged     = errors.New("price changed")
	ErrTotalsMismatch   = errors.New("order totals do not match")
	ErrInvalidCoupon    = errors.New("coupon code is not valid")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCancelNotAllowed = errors.New("order can no longer be cancelled")
)

// RejectionError is a business rule failure with a reason meant for the customer
type RejectionError struct {
	Err    error
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(err error, format string, args ...interface{}) error {
	return &RejectionError{Err: err, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the customer-facing reason carried by err, or fallback
func Reason(err error, fallback string) string {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	return fallback
}
