package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
)

type inventoryRepository struct {
	q querier
	d Dialect
}

func (r *inventoryRepository) Get(ctx context.Context, productID uuid.UUID) (*inventory.Record, error) {
	var rec inventory.Record
	query := r.q.Rebind(`SELECT product_id, stock, updated_at FROM inventory WHERE product_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &rec, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select inventory for product %s: %w", productID, r.d.classify(err))
	}
	return &rec, nil
}

func (r *inventoryRepository) List(ctx context.Context) ([]inventory.Record, error) {
	records := make([]inventory.Record, 0)
	query := `SELECT product_id, stock, updated_at FROM inventory ORDER BY product_id`
	if err := sqlx.SelectContext(ctx, r.q, &records, query); err != nil {
		return nil, fmt.Errorf("repository: failed to select inventory: %w", r.d.classify(err))
	}
	return records, nil
}

// Decrement checks and writes in a single conditional UPDATE. When no row
// matches, a follow-up read tells a missing record from a short one.
func (r *inventoryRepository) Decrement(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	var stock int
	query := r.q.Rebind(`
		UPDATE inventory SET stock = stock - ?, updated_at = ?
		WHERE product_id = ? AND stock >= ?
		RETURNING stock`)
	err := sqlx.GetContext(ctx, r.q, &stock, query, qty, time.Now().UTC(), productID, qty)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("repository: failed to decrement stock for product %s: %w", productID, r.d.classify(err))
	}

	rec, err := r.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return 0, &inventory.InsufficientStockError{ProductID: productID, Requested: qty, Available: rec.Stock}
}

func (r *inventoryRepository) Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	var stock int
	query := r.q.Rebind(`
		UPDATE inventory SET stock = stock + ?, updated_at = ?
		WHERE product_id = ?
		RETURNING stock`)
	if err := sqlx.GetContext(ctx, r.q, &stock, query, qty, time.Now().UTC(), productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, inventory.ErrInventoryNotFound
		}
		return 0, fmt.Errorf("repository: failed to increment stock for product %s: %w", productID, r.d.classify(err))
	}
	return stock, nil
}

func (r *inventoryRepository) SetStock(ctx context.Context, productID uuid.UUID, stock int) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE inventory SET stock = ?, updated_at = ? WHERE product_id = ?`),
		stock, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("repository: failed to set stock for product %s: %w", productID, r.d.classify(err))
	}
	return requireAffected(res, inventory.ErrInventoryNotFound)
}
