package tests

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

// memoryState is the committed view of the mock store. Atomic scopes work on
// a deep clone and swap it in on commit, so rollback and all-or-nothing
// visibility behave like the real transaction layer.
type memoryState struct {
	products map[uuid.UUID]*model.Product
	orders   map[uuid.UUID]*model.Order
}

func (s *memoryState) clone() *memoryState {
	next := &memoryState{
		products: make(map[uuid.UUID]*model.Product, len(s.products)),
		orders:   make(map[uuid.UUID]*model.Order, len(s.orders)),
	}
	for id, product := range s.products {
		clone := *product
		next.products[id] = &clone
	}
	for id, order := range s.orders {
		next.orders[id] = cloneOrder(order)
	}
	return next
}

func cloneOrder(order *model.Order) *model.Order {
	clone := *order
	clone.Lines = append([]model.OrderLine(nil), order.Lines...)
	return &clone
}

var _ service.ScopeFactory = &memoryScopeFactory{}

// memoryScopeFactory serializes atomic scopes with one mutex, standing in for
// the per-row locking of the real database.
type memoryScopeFactory struct {
	mu    sync.Mutex
	state *memoryState
}

func newMemoryScopeFactory() *memoryScopeFactory {
	return &memoryScopeFactory{
		state: &memoryState{
			products: make(map[uuid.UUID]*model.Product),
			orders:   make(map[uuid.UUID]*model.Order),
		},
	}
}

func (f *memoryScopeFactory) Atomic(_ context.Context) (service.AtomicScope, error) {
	f.mu.Lock()
	return &memoryAtomicScope{factory: f, staged: f.state.clone()}, nil
}

func (f *memoryScopeFactory) ReadOnly() service.RepositoryScope {
	return &memoryReadScope{factory: f}
}

// Test helpers reading and seeding the committed state directly.

func (f *memoryScopeFactory) addProduct(priceCents int64, stock int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	now := time.Now().UTC()
	f.state.products[id] = &model.Product{
		ID:            id,
		Name:          "product-" + id.String()[:8],
		PriceCents:    priceCents,
		StockQuantity: stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return id
}

func (f *memoryScopeFactory) storedProduct(id uuid.UUID) *model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.state.products[id]
	if !ok {
		return nil
	}
	clone := *product
	return &clone
}

func (f *memoryScopeFactory) productCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.products)
}

func (f *memoryScopeFactory) stock(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.products[id].StockQuantity
}

func (f *memoryScopeFactory) setPrice(id uuid.UUID, priceCents int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.products[id].PriceCents = priceCents
}

func (f *memoryScopeFactory) storedOrder(id uuid.UUID) *model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.state.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(order)
}

func (f *memoryScopeFactory) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.orders)
}

type memoryAtomicScope struct {
	factory  *memoryScopeFactory
	staged   *memoryState
	finished bool
}

func (s *memoryAtomicScope) Products() model.ProductRepository {
	return &memoryProductRepository{access: s.access}
}

func (s *memoryAtomicScope) Orders() model.OrderRepository {
	return &memoryOrderRepository{access: s.access}
}

func (s *memoryAtomicScope) OrderLines() model.OrderLineRepository {
	return &memoryOrderLineRepository{access: s.access}
}

func (s *memoryAtomicScope) access(fn func(*memoryState) error) error {
	return fn(s.staged)
}

func (s *memoryAtomicScope) Commit() error {
	s.factory.state = s.staged
	s.finished = true
	s.factory.mu.Unlock()
	return nil
}

func (s *memoryAtomicScope) Rollback() error {
	if s.finished {
		return nil
	}
	s.finished = true
	s.factory.mu.Unlock()
	return nil
}

type memoryReadScope struct {
	factory *memoryScopeFactory
}

func (s *memoryReadScope) Products() model.ProductRepository {
	return &memoryProductRepository{access: s.access}
}

func (s *memoryReadScope) Orders() model.OrderRepository {
	return &memoryOrderRepository{access: s.access}
}

func (s *memoryReadScope) OrderLines() model.OrderLineRepository {
	return &memoryOrderLineRepository{access: s.access}
}

func (s *memoryReadScope) access(fn func(*memoryState) error) error {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	return fn(s.factory.state)
}

type memoryProductRepository struct {
	access func(func(*memoryState) error) error
}

func (r *memoryProductRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *memoryProductRepository) Create(product *model.Product) error {
	return r.access(func(s *memoryState) error {
		clone := *product
		s.products[product.ID] = &clone
		return nil
	})
}

func (r *memoryProductRepository) Find(id uuid.UUID) (*model.Product, error) {
	var found *model.Product
	err := r.access(func(s *memoryState) error {
		product, ok := s.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		clone := *product
		found = &clone
		return nil
	})
	return found, err
}

func (r *memoryProductRepository) DecrementStock(id uuid.UUID, qty int) (bool, error) {
	applied := false
	err := r.access(func(s *memoryState) error {
		product, ok := s.products[id]
		if !ok || product.StockQuantity < qty {
			return nil
		}
		product.StockQuantity -= qty
		applied = true
		return nil
	})
	return applied, err
}

func (r *memoryProductRepository) IncrementStock(id uuid.UUID, qty int) error {
	return r.access(func(s *memoryState) error {
		product, ok := s.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		product.StockQuantity += qty
		return nil
	})
}

type memoryOrderRepository struct {
	access func(func(*memoryState) error) error
}

func (r *memoryOrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *memoryOrderRepository) Create(order *model.Order) error {
	return r.access(func(s *memoryState) error {
		s.orders[order.ID] = cloneOrder(order)
		return nil
	})
}

func (r *memoryOrderRepository) Find(id uuid.UUID) (*model.Order, error) {
	var found *model.Order
	err := r.access(func(s *memoryState) error {
		order, ok := s.orders[id]
		if !ok {
			return model.ErrOrderNotFound
		}
		found = cloneOrder(order)
		return nil
	})
	return found, err
}

func (r *memoryOrderRepository) FindForUpdate(id uuid.UUID) (*model.Order, error) {
	// The scope factory's mutex already serializes atomic scopes.
	return r.Find(id)
}

func (r *memoryOrderRepository) UpdateTotal(id uuid.UUID, totalCents int64) error {
	return r.access(func(s *memoryState) error {
		order, ok := s.orders[id]
		if !ok {
			return model.ErrOrderNotFound
		}
		order.TotalCents = totalCents
		return nil
	})
}

func (r *memoryOrderRepository) UpdateStatus(id uuid.UUID, status model.OrderStatus) error {
	return r.access(func(s *memoryState) error {
		order, ok := s.orders[id]
		if !ok {
			return model.ErrOrderNotFound
		}
		order.Status = status
		return nil
	})
}

type memoryOrderLineRepository struct {
	access func(func(*memoryState) error) error
}

func (r *memoryOrderLineRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *memoryOrderLineRepository) Create(line *model.OrderLine) error {
	return r.access(func(s *memoryState) error {
		order, ok := s.orders[line.OrderID]
		if !ok {
			return model.ErrOrderNotFound
		}
		order.Lines = append(order.Lines, *line)
		return nil
	})
}

func (r *memoryOrderLineRepository) UpdateQuantity(id uuid.UUID, quantity int) error {
	return r.access(func(s *memoryState) error {
		for _, order := range s.orders {
			if line := order.Line(id); line != nil {
				line.Quantity = quantity
				return nil
			}
		}
		return model.ErrOrderLineNotFound
	})
}

func (r *memoryOrderLineRepository) Delete(id uuid.UUID) error {
	return r.access(func(s *memoryState) error {
		for _, order := range s.orders {
			for i := range order.Lines {
				if order.Lines[i].ID == id {
					order.Lines = append(order.Lines[:i], order.Lines[i+1:]...)
					return nil
				}
			}
		}
		return model.ErrOrderLineNotFound
	})
}

var _ service.Notifier = &mockNotifier{}

type mockNotifier struct {
	mu     sync.Mutex
	events []model.OrderStatusChanged
	err    error
}

func (m *mockNotifier) Notify(event model.OrderStatusChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) sent() []model.OrderStatusChanged {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OrderStatusChanged(nil), m.events...)
}
