// Package apperror defines the failure taxonomy shared by the storefront core.
package apperror

import (
	"errors"
	"fmt"
)

// Kind categorizes failures by how the caller should react to them.
type Kind int

const (
	// KindTransport indicates a network or timeout failure; safe to retry for idempotent reads.
	KindTransport Kind = iota
	// KindValidation indicates a precondition failed locally; nothing was sent to the server.
	KindValidation
	// KindServerRejection indicates the server refused the request with a structured reason.
	KindServerRejection
	// KindStaleState indicates the local projection diverged from server truth.
	KindStaleState
	// KindNotFound indicates the server has no such resource.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindServerRejection:
		return "server_rejection"
	case KindStaleState:
		return "stale_state"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a categorized failure with a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status for server-originated errors
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating an idempotent request may succeed
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport
}

// Sentinel causes callers match with errors.Is.
var (
	ErrCatalogUnavailable   = errors.New("catalog unavailable")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMissingAddress       = errors.New("delivery address is required")
	ErrInvalidPayment       = errors.New("payment method must be cash or online")
	ErrUnknownItem          = errors.New("item not in catalog")
	ErrNotInCart            = errors.New("item not in cart")
	ErrItemUnavailable      = errors.New("item is currently unavailable")
	ErrUnknownCoupon        = errors.New("coupon code not recognised")
	ErrCouponExpired        = errors.New("coupon expired")
	ErrMinimumNotMet        = errors.New("minimum order not met")
	ErrCouponIneligible     = errors.New("coupon not eligible")
	ErrCancelNotAllowed     = errors.New("order can no longer be cancelled")
	ErrNoActiveOrder        = errors.New("no order to track")
	ErrOrderNotFound        = errors.New("order not found")
	ErrSubmissionInProgress = errors.New("an order submission is already in progress")
)

// Transport wraps a network failure
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Message: op + " failed", Cause: err}
}

// Validation creates a local precondition failure around a sentinel
func Validation(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Rejected creates a server rejection carrying the server's reason verbatim
func Rejected(status int, reason string) *Error {
	return &Error{Kind: KindServerRejection, Status: status, Message: reason}
}

// NotFound creates a not-found failure
func NotFound(status int, reason string) *Error {
	return &Error{Kind: KindNotFound, Status: status, Message: reason}
}

// Stale creates a stale-state failure
func Stale(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStaleState, Message: fmt.Sprintf(format, args...)}
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind anywhere in its chain
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// Message returns the text to show a user for any error
func Message(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		switch appErr.Kind {
		case KindTransport:
			return "We couldn't reach the restaurant. Check your connection and try again."
		case KindServerRejection, KindValidation, KindNotFound:
			return appErr.Message
		case KindStaleState:
			return "Your cart was updated from another device."
		}
	}
	return "Something went wrong. Please try again."
}
