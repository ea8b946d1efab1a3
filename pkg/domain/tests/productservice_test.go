package tests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func setupProducts(t *testing.T) (service.ProductService, *memoryScopeFactory) {
	t.Helper()
	factory := newMemoryScopeFactory()
	clock := service.Clock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	products := service.NewProductService(service.NewBoundedScopeFactory(factory, 5*time.Second), clock)
	return products, factory
}

func TestCreateProduct(t *testing.T) {
	products, factory := setupProducts(t)

	product, err := products.CreateProduct(context.Background(), "Laptop", 150000, 10)

	require.NoError(t, err)
	require.NotNil(t, product)
	assert.NotEqual(t, uuid.Nil, product.ID)
	assert.Equal(t, "Laptop", product.Name)
	assert.Equal(t, int64(150000), product.PriceCents)
	assert.Equal(t, 10, product.StockQuantity)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), product.CreatedAt)

	stored := factory.storedProduct(product.ID)
	require.NotNil(t, stored)
	assert.Equal(t, 10, stored.StockQuantity)
}

func TestCreateProductValidation(t *testing.T) {
	products, factory := setupProducts(t)

	cases := []struct {
		name         string
		productName  string
		priceCents   int64
		initialStock int
	}{
		{"empty name", "", 1000, 5},
		{"negative price", "Laptop", -1, 5},
		{"negative stock", "Laptop", 1000, -5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := products.CreateProduct(context.Background(), c.productName, c.priceCents, c.initialStock)
			var validationErr model.ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Equal(t, 0, factory.productCount())
}

func TestCreatedProductFeedsOrderCreation(t *testing.T) {
	products, factory := setupProducts(t)
	clock := service.Clock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	scopes := service.NewBoundedScopeFactory(factory, 5*time.Second)
	ledger := service.NewInventoryLedger()
	lines := service.NewOrderLineService(scopes, ledger)
	orders := service.NewOrderService(scopes, lines, clock)

	product, err := products.CreateProduct(context.Background(), "Headphones", 9999, 40)
	require.NoError(t, err)

	order, err := orders.Create(context.Background(), uuid.New(), []service.NewOrderItem{
		{ProductID: product.ID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2*9999), order.TotalCents)
	assert.Equal(t, 38, factory.stock(product.ID))
}
