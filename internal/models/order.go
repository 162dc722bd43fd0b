package models

import "time"

// PaymentMethod is the customer's declared way to pay; no settlement happens client side
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether the payment method is supported
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentOnline
}

// Totals is the priced breakdown of a cart
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"deliveryFee"`
	Tax         int64 `json:"tax"`
	Discount    int64 `json:"discount"`
	Total       int64 `json:"total"`
}

// OrderLine is a frozen cart line inside an order
type OrderLine struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// OrderRequest is the immutable snapshot posted once to create an order
type OrderRequest struct {
	UserID        string        `json:"userId"`
	Lines         []OrderLine   `json:"lines"`
	Address       string        `json:"address"`
	Totals        Totals        `json:"totals"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CouponCode    string        `json:"couponCode,omitempty"`
	Instructions  string        `json:"instructions,omitempty"`
	PlacedAt      time.Time     `json:"placedAt"`
}

// OrderCreated is the response of POST order
type OrderCreated struct {
	OrderID string `json:"orderId"`
}

// CancelRequest is the body of POST cancel
type CancelRequest struct {
	UserID string `json:"userId"`
}

// Order is a submitted order as reported by the order service
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Lines         []OrderLine   `json:"lines"`
	Address       string        `json:"address"`
	Totals        Totals        `json:"totals"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CouponCode    string        `json:"couponCode,omitempty"`
	Instructions  string        `json:"instructions,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	Status        OrderStatus   `json:"status"`
}
