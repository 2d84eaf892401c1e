package model

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// allowedTransitions is the single authority on status changes. DELIVERED and
// CANCELLED are terminal; a same-state transition is an idempotent no-op and
// is always allowed.
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> target is legal.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !target.Valid() {
		return false
	}
	if s == target {
		return true
	}
	return allowedTransitions[s][target]
}
