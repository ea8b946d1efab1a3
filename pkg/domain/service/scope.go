package service

import (
	"context"
	"time"

	"storefront/pkg/domain/model"
)

// RepositoryScope groups the repositories bound to one persistence scope, so
// that a stock update and its corresponding line/total update always travel
// through the same underlying connection.
type RepositoryScope interface {
	Products() model.ProductRepository
	Orders() model.OrderRepository
	OrderLines() model.OrderLineRepository
}

// AtomicScope is a RepositoryScope bound to a single transaction. Rollback
// after Commit is a no-op, so callers defer Rollback on every path and call
// Commit explicitly on success.
type AtomicScope interface {
	RepositoryScope
	Commit() error
	Rollback() error
}

type ScopeFactory interface {
	Atomic(ctx context.Context) (AtomicScope, error)
	// ReadOnly returns a scope over autocommit reads. It takes no locks and
	// gives no consistency guarantee beyond a single statement.
	ReadOnly() RepositoryScope
}

// Clock supplies the current time to services, keeping entity timestamps out
// of ambient global state.
type Clock func() time.Time

// NewBoundedScopeFactory wraps factory so that every atomic scope carries a
// deadline: a transaction that cannot finish within timeout fails with the
// context error instead of blocking for the life of the request. The failure
// surfaces before commit, so nothing partial becomes visible and the caller
// may retry.
func NewBoundedScopeFactory(factory ScopeFactory, timeout time.Duration) ScopeFactory {
	return &boundedScopeFactory{inner: factory, timeout: timeout}
}

type boundedScopeFactory struct {
	inner   ScopeFactory
	timeout time.Duration
}

func (f *boundedScopeFactory) Atomic(ctx context.Context) (AtomicScope, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	scope, err := f.inner.Atomic(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	return &boundedScope{AtomicScope: scope, cancel: cancel}, nil
}

func (f *boundedScopeFactory) ReadOnly() RepositoryScope {
	return f.inner.ReadOnly()
}

type boundedScope struct {
	AtomicScope
	cancel context.CancelFunc
}

func (s *boundedScope) Commit() error {
	defer s.cancel()
	return s.AtomicScope.Commit()
}

func (s *boundedScope) Rollback() error {
	defer s.cancel()
	return s.AtomicScope.Rollback()
}
