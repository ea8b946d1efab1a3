package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderLineNotFound = errors.New("order line not found")
	ErrProductNotFound   = errors.New("product not found")
)

// ValidationError reports malformed input (missing user, non-positive
// quantity, empty item list). Nothing has been persisted when it is returned.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InsufficientStockError is returned when a reservation asks for more units
// than the product currently has available.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidTransitionError is returned when the requested status change is not
// an edge of the order transition graph.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

// TerminalStateError is returned for any mutation attempted on an order that
// has reached a terminal status.
type TerminalStateError struct {
	OrderID uuid.UUID
	Status  OrderStatus
}

func (e TerminalStateError) Error() string {
	return fmt.Sprintf("order %s is %s and cannot be modified", e.OrderID, e.Status)
}
