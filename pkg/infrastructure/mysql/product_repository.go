package mysql

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type productRepository struct {
	db sqlx.Ext
}

type productRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	PriceCents    int64     `db:"price_cents"`
	StockQuantity int       `db:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(product *model.Product) error {
	const query = `
		INSERT INTO products (id, name, price_cents, stock_quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		product.ID.String(),
		product.Name,
		product.PriceCents,
		product.StockQuantity,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert product")
}

func (r *productRepository) Find(id uuid.UUID) (*model.Product, error) {
	const query = `
		SELECT id, name, price_cents, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = ?`
	var row productRow
	if err := sqlx.Get(r.db, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "failed to find product")
	}
	return row.toProduct()
}

func (r *productRepository) DecrementStock(id uuid.UUID, qty int) (bool, error) {
	// One conditional write: the guard and the decrement happen in the same
	// statement, so a concurrent decrement of the same row cannot slip in
	// between a check and an update.
	const query = `
		UPDATE products
		SET stock_quantity = stock_quantity - ?, updated_at = UTC_TIMESTAMP(3)
		WHERE id = ? AND stock_quantity >= ?`
	result, err := r.db.Exec(query, qty, id.String(), qty)
	if err != nil {
		return false, errors.Wrap(err, "failed to decrement stock")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

func (r *productRepository) IncrementStock(id uuid.UUID, qty int) error {
	const query = `
		UPDATE products
		SET stock_quantity = stock_quantity + ?, updated_at = UTC_TIMESTAMP(3)
		WHERE id = ?`
	result, err := r.db.Exec(query, qty, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to increment stock")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

func (row productRow) toProduct() (*model.Product, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product id in storage")
	}
	return &model.Product{
		ID:            id,
		Name:          row.Name,
		PriceCents:    row.PriceCents,
		StockQuantity: row.StockQuantity,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
