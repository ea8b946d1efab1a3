package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCanceled   OrderStatus = "canceled"
)

func ParseOrderStatus(value string) (OrderStatus, error) {
	switch OrderStatus(value) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCanceled:
		return OrderStatus(value), nil
	default:
		return "", ValidationError{Reason: fmt.Sprintf("unknown order status %q", value)}
	}
}

// IsTerminal reports whether no further transition or line mutation is
// permitted for an order in this status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type Order struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Status     OrderStatus
	TotalCents int64
	Lines      []OrderLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Line returns the order's line with the given id, or nil.
func (o *Order) Line(lineID uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// UnitPriceCents is frozen at line creation; later catalog price changes
	// never affect this line's subtotal.
	UnitPriceCents int64
}

func (l OrderLine) SubtotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(order *Order) error
	// Find loads the order together with all of its lines.
	Find(id uuid.UUID) (*Order, error)
	// FindForUpdate is Find with the order row locked until the enclosing
	// transaction ends, serializing concurrent mutations of the same order.
	FindForUpdate(id uuid.UUID) (*Order, error)
	UpdateTotal(id uuid.UUID, totalCents int64) error
	UpdateStatus(id uuid.UUID, status OrderStatus) error
}

type OrderLineRepository interface {
	NextID() (uuid.UUID, error)
	Create(line *OrderLine) error
	UpdateQuantity(id uuid.UUID, quantity int) error
	Delete(id uuid.UUID) error
}
