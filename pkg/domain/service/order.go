package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
)

type NewOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type OrderService interface {
	// Create builds a whole order from the requested items: it pre-validates
	// stock, then creates the order shell, one line per item and the final
	// total inside a single atomic scope. Any line failure rolls back the
	// entire order; no partial order or partial stock decrement survives.
	Create(ctx context.Context, userID uuid.UUID, items []NewOrderItem) (*model.Order, error)
	Find(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
}

func NewOrderService(scopes ScopeFactory, lines OrderLineService, clock Clock) OrderService {
	return &orderService{scopes: scopes, lines: lines, clock: clock}
}

type orderService struct {
	scopes ScopeFactory
	lines  OrderLineService
	clock  Clock
}

func (s *orderService) Create(ctx context.Context, userID uuid.UUID, items []NewOrderItem) (*model.Order, error) {
	if userID == uuid.Nil {
		return nil, model.ValidationError{Reason: "user id is required"}
	}
	if len(items) == 0 {
		return nil, model.ValidationError{Reason: "order must contain at least one item"}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, model.ValidationError{
				Reason: fmt.Sprintf("quantity for product %s must be a positive integer", item.ProductID),
			}
		}
	}

	// Optimistic pre-flight: reject requests that are already known to exceed
	// stock before paying for a transaction. The conditional reserve inside
	// the scope below remains the authoritative check.
	catalog := s.scopes.ReadOnly().Products()
	for _, item := range items {
		product, err := catalog.Find(item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.StockQuantity < item.Quantity {
			return nil, model.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: product.StockQuantity,
			}
		}
	}

	scope, err := s.scopes.Atomic(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	orderID, err := scope.Orders().NextID()
	if err != nil {
		return nil, err
	}
	now := s.clock()
	order := &model.Order{
		ID:         orderID,
		UserID:     userID,
		Status:     model.StatusPending,
		TotalCents: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := scope.Orders().Create(order); err != nil {
		return nil, err
	}

	var total int64
	for _, item := range items {
		line, err := s.lines.CreateLine(scope, order, item.ProductID, item.Quantity)
		if err != nil {
			// Stock consumed by a concurrent order since the pre-flight read;
			// the deferred rollback discards the shell and every reservation
			// made so far.
			return nil, err
		}
		total += line.SubtotalCents()
	}

	if err := scope.Orders().UpdateTotal(order.ID, total); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}

	order.TotalCents = total
	return order, nil
}

func (s *orderService) Find(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.scopes.ReadOnly().Orders().Find(orderID)
}
