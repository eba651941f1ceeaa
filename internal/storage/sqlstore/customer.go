package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
)

const customerColumns = `id, username, email, role, active, created_at`

type customerRepository struct {
	q querier
	d Dialect
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO customers (id, username, email, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.Username, c.Email, string(c.Role), c.Active, c.CreatedAt)
	if err != nil {
		if r.d.isUniqueKey(err) {
			return customer.ErrUsernameTaken
		}
		return fmt.Errorf("repository: failed to insert customer: %w", r.d.classify(err))
	}
	return nil
}

func (r *customerRepository) FindByUsername(ctx context.Context, username string) (*customer.Customer, error) {
	var c customer.Customer
	query := r.q.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE username = ?`)
	if err := sqlx.GetContext(ctx, r.q, &c, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer %q: %w", username, r.d.classify(err))
	}
	return &c, nil
}

func (r *customerRepository) ListActive(ctx context.Context) ([]customer.Customer, error) {
	customers := make([]customer.Customer, 0)
	query := r.q.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE active = ? ORDER BY username`)
	if err := sqlx.SelectContext(ctx, r.q, &customers, query, true); err != nil {
		return nil, fmt.Errorf("repository: failed to select active customers: %w", r.d.classify(err))
	}
	return customers, nil
}

func (r *customerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE customers SET active = ? WHERE id = ?`), false, id)
	if err != nil {
		return fmt.Errorf("repository: failed to deactivate customer %s: %w", id, r.d.classify(err))
	}
	return requireAffected(res, customer.ErrNotFound)
}

func (r *customerRepository) CountOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	query := r.q.Rebind(`SELECT COUNT(*) FROM orders WHERE customer_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &count, query, id); err != nil {
		return 0, fmt.Errorf("repository: failed to count orders of customer %s: %w", id, r.d.classify(err))
	}
	return count, nil
}
