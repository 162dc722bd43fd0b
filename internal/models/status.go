package models

// OrderStatus is the server-driven fulfillment state of an order
type OrderStatus string

const (
	StatusOrdered   OrderStatus = "ordered"
	StatusApproved  OrderStatus = "approved"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusDelivered OrderStatus = "delivered"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	StatusOrdered:   0,
	StatusApproved:  1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusPickedUp:  4,
	StatusDelivered: 5,
	StatusRejected:  6,
	StatusCancelled: 6,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank is the position of s in the progression; terminal alternates rank last
func (s OrderStatus) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// IsTerminal reports whether no further transition is expected
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusRejected || s == StatusCancelled
}

// CanCancel reports whether the customer may still cancel
func (s OrderStatus) CanCancel() bool {
	return s == StatusOrdered
}

// Supersedes reports whether an observed status may replace the current one
// without the client seeing a regression. Terminal statuses are absorbing.
func (s OrderStatus) Supersedes(current OrderStatus) bool {
	if !s.Valid() {
		return false
	}
	if current == "" {
		return true
	}
	if current.IsTerminal() {
		return false
	}
	if s.IsTerminal() {
		return true
	}
	return s.Rank() >= current.Rank()
}

// CanTransition reports whether the fulfillment system may move an order from current to next.
// Cancelled is only reachable from ordered.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !next.Valid() || s.IsTerminal() {
		return false
	}
	switch next {
	case StatusCancelled:
		return s == StatusOrdered
	case StatusRejected:
		return true
	}
	return next.Rank() == s.Rank()+1
}
