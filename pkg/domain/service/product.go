package service

import (
	"context"

	"storefront/pkg/domain/model"
)

// ProductService creates catalog entries. Once created, a product's stock is
// mutated only through the InventoryLedger.
type ProductService interface {
	CreateProduct(ctx context.Context, name string, priceCents int64, initialStock int) (*model.Product, error)
}

func NewProductService(scopes ScopeFactory, clock Clock) ProductService {
	return &productService{scopes: scopes, clock: clock}
}

type productService struct {
	scopes ScopeFactory
	clock  Clock
}

func (s *productService) CreateProduct(ctx context.Context, name string, priceCents int64, initialStock int) (*model.Product, error) {
	if name == "" {
		return nil, model.ValidationError{Reason: "product name is required"}
	}
	if priceCents < 0 {
		return nil, model.ValidationError{Reason: "product price cannot be negative"}
	}
	if initialStock < 0 {
		return nil, model.ValidationError{Reason: "initial stock cannot be negative"}
	}

	scope, err := s.scopes.Atomic(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	productID, err := scope.Products().NextID()
	if err != nil {
		return nil, err
	}
	now := s.clock()
	product := &model.Product{
		ID:            productID,
		Name:          name,
		PriceCents:    priceCents,
		StockQuantity: initialStock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := scope.Products().Create(product); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}
	return product, nil
}
