package mysql

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type orderRepository struct {
	db sqlx.Ext
}

type orderRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Status     string    `db:"status"`
	TotalCents int64     `db:"total_cents"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type orderLineRow struct {
	ID             string `db:"id"`
	OrderID        string `db:"order_id"`
	ProductID      string `db:"product_id"`
	Quantity       int    `db:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents"`
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(order *model.Order) error {
	const query = `
		INSERT INTO orders (id, user_id, status, total_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		order.ID.String(),
		order.UserID.String(),
		string(order.Status),
		order.TotalCents,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert order")
}

func (r *orderRepository) Find(id uuid.UUID) (*model.Order, error) {
	return r.find(id, false)
}

func (r *orderRepository) FindForUpdate(id uuid.UUID) (*model.Order, error) {
	return r.find(id, true)
}

func (r *orderRepository) find(id uuid.UUID, forUpdate bool) (*model.Order, error) {
	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = ?`
	if forUpdate {
		// The order row is the serialization point for every mutation of the
		// aggregate: lines, total and status.
		query += ` FOR UPDATE`
	}

	var row orderRow
	if err := sqlx.Get(r.db, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	order, err := row.toOrder()
	if err != nil {
		return nil, err
	}

	const linesQuery = `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_lines
		WHERE order_id = ?
		ORDER BY id`
	var lineRows []orderLineRow
	if err := sqlx.Select(r.db, &lineRows, linesQuery, id.String()); err != nil {
		return nil, errors.Wrap(err, "failed to load order lines")
	}
	order.Lines = make([]model.OrderLine, 0, len(lineRows))
	for _, lineRow := range lineRows {
		line, err := lineRow.toOrderLine()
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, *line)
	}
	return order, nil
}

func (r *orderRepository) UpdateTotal(id uuid.UUID, totalCents int64) error {
	const query = `
		UPDATE orders
		SET total_cents = ?, updated_at = UTC_TIMESTAMP(3)
		WHERE id = ?`
	return r.update(query, totalCents, id)
}

func (r *orderRepository) UpdateStatus(id uuid.UUID, status model.OrderStatus) error {
	const query = `
		UPDATE orders
		SET status = ?, updated_at = UTC_TIMESTAMP(3)
		WHERE id = ?`
	return r.update(query, string(status), id)
}

func (r *orderRepository) update(query string, value interface{}, id uuid.UUID) error {
	result, err := r.db.Exec(query, value, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

type orderLineRepository struct {
	db sqlx.Ext
}

func (r *orderLineRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderLineRepository) Create(line *model.OrderLine) error {
	const query = `
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price_cents)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		line.ID.String(),
		line.OrderID.String(),
		line.ProductID.String(),
		line.Quantity,
		line.UnitPriceCents,
	)
	return errors.Wrap(err, "failed to insert order line")
}

func (r *orderLineRepository) UpdateQuantity(id uuid.UUID, quantity int) error {
	const query = `UPDATE order_lines SET quantity = ? WHERE id = ?`
	result, err := r.db.Exec(query, quantity, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to update order line")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return model.ErrOrderLineNotFound
	}
	return nil
}

func (r *orderLineRepository) Delete(id uuid.UUID) error {
	const query = `DELETE FROM order_lines WHERE id = ?`
	result, err := r.db.Exec(query, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete order line")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return model.ErrOrderLineNotFound
	}
	return nil
}

func (row orderRow) toOrder() (*model.Order, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order id in storage")
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid user id in storage")
	}
	status, err := model.ParseOrderStatus(row.Status)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order status in storage")
	}
	return &model.Order{
		ID:         id,
		UserID:     userID,
		Status:     status,
		TotalCents: row.TotalCents,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (row orderLineRow) toOrderLine() (*model.OrderLine, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order line id in storage")
	}
	orderID, err := uuid.Parse(row.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order id in storage")
	}
	productID, err := uuid.Parse(row.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid product id in storage")
	}
	return &model.OrderLine{
		ID:             id,
		OrderID:        orderID,
		ProductID:      productID,
		Quantity:       row.Quantity,
		UnitPriceCents: row.UnitPriceCents,
	}, nil
}
