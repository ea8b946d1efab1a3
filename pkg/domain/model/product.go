package model

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID
	Name          string
	PriceCents    int64
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(product *Product) error
	Find(id uuid.UUID) (*Product, error)
	// DecrementStock subtracts qty from the product's stock in one conditional
	// write: the update applies only while stock_quantity >= qty. It reports
	// false when the condition matched no row, without distinguishing a lost
	// race from a missing product.
	DecrementStock(id uuid.UUID, qty int) (bool, error)
	// IncrementStock adds qty back to the product's stock. There is no upper
	// bound: it only ever undoes a prior successful decrement.
	IncrementStock(id uuid.UUID, qty int) error
}
