package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatusChanged struct {
	OrderID    uuid.UUID
	UserID     uuid.UUID
	OldStatus  OrderStatus
	NewStatus  OrderStatus
	OccurredAt time.Time
}

func (e OrderStatusChanged) Type() string { return "OrderStatusChanged" }
