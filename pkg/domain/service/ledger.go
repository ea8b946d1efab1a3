package service

import (
	"github.com/google/uuid"

	"storefront/pkg/domain/model"
)

// InventoryLedger is the sole authority for stock increments and decrements.
// Every method runs against the caller's scope so the stock write commits or
// rolls back together with the order mutation that caused it.
type InventoryLedger interface {
	// Reserve decrements the product's stock by qty in one conditional write.
	// It never reads then writes, so two callers racing for the last units
	// cannot both succeed.
	Reserve(scope RepositoryScope, productID uuid.UUID, qty int) error
	// Release increments the product's stock by qty. It always succeeds for an
	// existing product; callers must invoke it at most once per reservation.
	Release(scope RepositoryScope, productID uuid.UUID, qty int) error
	// Adjust reserves delta when positive and releases -delta when negative.
	Adjust(scope RepositoryScope, productID uuid.UUID, delta int) error
}

func NewInventoryLedger() InventoryLedger {
	return &inventoryLedger{}
}

type inventoryLedger struct{}

func (l *inventoryLedger) Reserve(scope RepositoryScope, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return model.ValidationError{Reason: "reserve quantity must be a positive integer"}
	}

	applied, err := scope.Products().DecrementStock(productID, qty)
	if err != nil {
		return err
	}
	if !applied {
		// The conditional write matched nothing: either the product does not
		// exist or its stock is short. Re-read to tell the two apart.
		product, err := scope.Products().Find(productID)
		if err != nil {
			return err
		}
		return model.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: product.StockQuantity,
		}
	}
	return nil
}

func (l *inventoryLedger) Release(scope RepositoryScope, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return model.ValidationError{Reason: "release quantity must be a positive integer"}
	}
	return scope.Products().IncrementStock(productID, qty)
}

func (l *inventoryLedger) Adjust(scope RepositoryScope, productID uuid.UUID, delta int) error {
	switch {
	case delta > 0:
		return l.Reserve(scope, productID, delta)
	case delta < 0:
		return l.Release(scope, productID, -delta)
	default:
		return nil
	}
}
