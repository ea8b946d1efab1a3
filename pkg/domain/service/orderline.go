package service

import (
	"context"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
)

type OrderLineService interface {
	// CreateLine reserves stock for the item, freezes the product's current
	// price on the line and persists it, all inside the caller's scope. The
	// order total is not touched; the caller settles it.
	CreateLine(scope RepositoryScope, order *model.Order, productID uuid.UUID, qty int) (*model.OrderLine, error)
	// UpdateLineQuantity changes a line to newQty, adjusting stock by the
	// difference and the order total by diff * frozen unit price.
	UpdateLineQuantity(ctx context.Context, orderID, lineID uuid.UUID, newQty int) (*model.OrderLine, error)
	// DeleteLine releases the line's full reserved quantity, decrements the
	// order total by the line subtotal and removes the line.
	DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error
}

func NewOrderLineService(scopes ScopeFactory, ledger InventoryLedger) OrderLineService {
	return &orderLineService{scopes: scopes, ledger: ledger}
}

type orderLineService struct {
	scopes ScopeFactory
	ledger InventoryLedger
}

func (s *orderLineService) CreateLine(scope RepositoryScope, order *model.Order, productID uuid.UUID, qty int) (*model.OrderLine, error) {
	if qty <= 0 {
		return nil, model.ValidationError{Reason: "line quantity must be a positive integer"}
	}
	if order.Status.IsTerminal() {
		return nil, model.TerminalStateError{OrderID: order.ID, Status: order.Status}
	}

	if err := s.ledger.Reserve(scope, productID, qty); err != nil {
		return nil, err
	}

	// The reservation succeeded, so the product exists; read it for the price
	// to freeze on the line.
	product, err := scope.Products().Find(productID)
	if err != nil {
		return nil, err
	}

	lineID, err := scope.OrderLines().NextID()
	if err != nil {
		return nil, err
	}
	line := &model.OrderLine{
		ID:             lineID,
		OrderID:        order.ID,
		ProductID:      productID,
		Quantity:       qty,
		UnitPriceCents: product.PriceCents,
	}
	if err := scope.OrderLines().Create(line); err != nil {
		return nil, err
	}

	order.Lines = append(order.Lines, *line)
	return line, nil
}

func (s *orderLineService) UpdateLineQuantity(ctx context.Context, orderID, lineID uuid.UUID, newQty int) (*model.OrderLine, error) {
	// Zero is not a deletion shorthand; deletion is an explicit operation.
	if newQty <= 0 {
		return nil, model.ValidationError{Reason: "line quantity must be a positive integer"}
	}

	scope, err := s.scopes.Atomic(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	order, err := scope.Orders().FindForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, model.TerminalStateError{OrderID: order.ID, Status: order.Status}
	}

	line := order.Line(lineID)
	if line == nil {
		return nil, model.ErrOrderLineNotFound
	}

	diff := newQty - line.Quantity
	if diff == 0 {
		result := *line
		return &result, nil
	}

	if err := s.ledger.Adjust(scope, line.ProductID, diff); err != nil {
		return nil, err
	}
	if err := scope.OrderLines().UpdateQuantity(line.ID, newQty); err != nil {
		return nil, err
	}

	newTotal := order.TotalCents + int64(diff)*line.UnitPriceCents
	if err := scope.Orders().UpdateTotal(order.ID, newTotal); err != nil {
		return nil, err
	}

	if err := scope.Commit(); err != nil {
		return nil, err
	}

	line.Quantity = newQty
	result := *line
	return &result, nil
}

func (s *orderLineService) DeleteLine(ctx context.Context, orderID, lineID uuid.UUID) error {
	scope, err := s.scopes.Atomic(ctx)
	if err != nil {
		return err
	}
	defer scope.Rollback()

	order, err := scope.Orders().FindForUpdate(orderID)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return model.TerminalStateError{OrderID: order.ID, Status: order.Status}
	}

	line := order.Line(lineID)
	if line == nil {
		return model.ErrOrderLineNotFound
	}

	if err := s.removeLine(scope, order, line, false); err != nil {
		return err
	}

	return scope.Commit()
}

// removeLine releases the line's reservation and deletes it. Total settlement
// is skipped for callers that reconcile the order total through another path.
func (s *orderLineService) removeLine(scope RepositoryScope, order *model.Order, line *model.OrderLine, skipTotalUpdate bool) error {
	if err := s.ledger.Release(scope, line.ProductID, line.Quantity); err != nil {
		return err
	}
	if !skipTotalUpdate {
		if err := scope.Orders().UpdateTotal(order.ID, order.TotalCents-line.SubtotalCents()); err != nil {
			return err
		}
	}
	return scope.OrderLines().Delete(line.ID)
}
