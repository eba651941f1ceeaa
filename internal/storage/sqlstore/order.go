package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/order"
)

const (
	orderColumns = `id, customer_id, placed_at, total, discount, is_random`
	lineColumns  = `id, order_id, product_id, quantity, unit_price`
)

type orderRepository struct {
	q querier
	d Dialect
}

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	return atomically(ctx, r.q, r.d, func(q querier) error {
		_, err := q.ExecContext(ctx, q.Rebind(`
			INSERT INTO orders (`+orderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)`),
			o.ID, o.CustomerID, o.PlacedAt, o.Total, o.Discount, o.IsRandom)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order: %w", r.d.classify(err))
		}

		for i, line := range o.Lines {
			_, err = q.ExecContext(ctx, q.Rebind(`
				INSERT INTO order_lines (id, order_id, line_no, product_id, quantity, unit_price)
				VALUES (?, ?, ?, ?, ?, ?)`),
				line.ID, o.ID, i, line.ProductID, line.Quantity, line.UnitPrice)
			if err != nil {
				return fmt.Errorf("repository: failed to insert order line for order %s: %w", o.ID, r.d.classify(err))
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	query := r.q.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, r.d.classify(err))
	}

	lines := make([]order.Line, 0)
	query = r.q.Rebind(`SELECT ` + lineColumns + ` FROM order_lines WHERE order_id = ? ORDER BY line_no`)
	if err := sqlx.SelectContext(ctx, r.q, &lines, query, id); err != nil {
		return nil, fmt.Errorf("repository: failed to select lines for order %s: %w", id, r.d.classify(err))
	}
	o.Lines = lines

	return &o, nil
}

func (r *orderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE orders SET total = ? WHERE id = ?`), total, id)
	if err != nil {
		return fmt.Errorf("repository: failed to update total of order %s: %w", id, r.d.classify(err))
	}
	return requireAffected(res, order.ErrOrderNotFound)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	orders := make([]order.Order, 0)
	query := r.q.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE customer_id = ? ORDER BY placed_at DESC, id`)
	if err := sqlx.SelectContext(ctx, r.q, &orders, query, customerID); err != nil {
		return nil, fmt.Errorf("repository: failed to select orders of customer %s: %w", customerID, r.d.classify(err))
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, fmt.Errorf("repository: failed to select order lines of customer %s: %w", customerID, err)
	}
	return orders, nil
}

func (r *orderRepository) List(ctx context.Context) ([]order.Order, error) {
	orders := make([]order.Order, 0)
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY placed_at DESC, id`
	if err := sqlx.SelectContext(ctx, r.q, &orders, query); err != nil {
		return nil, fmt.Errorf("repository: failed to select orders: %w", r.d.classify(err))
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, fmt.Errorf("repository: failed to select order lines: %w", err)
	}
	return orders, nil
}

// attachLines loads the lines of every order with one IN query.
func (r *orderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*order.Order, len(orders))
	for i := range orders {
		orders[i].Lines = make([]order.Line, 0)
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In(`SELECT `+lineColumns+` FROM order_lines WHERE order_id IN (?) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var lines []order.Line
	if err := sqlx.SelectContext(ctx, r.q, &lines, r.q.Rebind(query), args...); err != nil {
		return r.d.classify(err)
	}
	for _, line := range lines {
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return nil
}
