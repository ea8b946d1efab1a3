package mysql

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func NewScopeFactory(db *sqlx.DB) service.ScopeFactory {
	return &scopeFactory{db: db}
}

type scopeFactory struct {
	db *sqlx.DB
}

func (f *scopeFactory) Atomic(ctx context.Context) (service.AtomicScope, error) {
	tx, err := f.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &atomicScope{tx: tx}, nil
}

func (f *scopeFactory) ReadOnly() service.RepositoryScope {
	return &readScope{db: f.db}
}

type atomicScope struct {
	tx       *sqlx.Tx
	finished bool
}

func (s *atomicScope) Products() model.ProductRepository {
	return &productRepository{db: s.tx}
}

func (s *atomicScope) Orders() model.OrderRepository {
	return &orderRepository{db: s.tx}
}

func (s *atomicScope) OrderLines() model.OrderLineRepository {
	return &orderLineRepository{db: s.tx}
}

func (s *atomicScope) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	s.finished = true
	return nil
}

func (s *atomicScope) Rollback() error {
	if s.finished {
		return nil
	}
	s.finished = true
	if err := s.tx.Rollback(); err != nil {
		return errors.Wrap(err, "failed to rollback transaction")
	}
	return nil
}

type readScope struct {
	db *sqlx.DB
}

func (s *readScope) Products() model.ProductRepository {
	return &productRepository{db: s.db}
}

func (s *readScope) Orders() model.OrderRepository {
	return &orderRepository{db: s.db}
}

func (s *readScope) OrderLines() model.OrderLineRepository {
	return &orderLineRepository{db: s.db}
}
