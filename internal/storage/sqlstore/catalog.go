package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
)

const productColumns = `id, name, description, price, created_at, updated_at`

type productRepository struct {
	q querier
	d Dialect
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	query := r.q.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, r.d.classify(err))
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context) ([]catalog.Product, error) {
	return r.selectProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

func (r *productRepository) SearchByName(ctx context.Context, fragment string) ([]catalog.Product, error) {
	return r.selectProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(name) LIKE LOWER(?) ORDER BY name, id`,
		"%"+fragment+"%")
}

func (r *productRepository) SearchByPrice(ctx context.Context, min, max decimal.Decimal) ([]catalog.Product, error) {
	return r.selectProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE price >= ? AND price <= ? ORDER BY price, id`,
		min, max)
}

func (r *productRepository) selectProducts(ctx context.Context, query string, args ...any) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0)
	if err := sqlx.SelectContext(ctx, r.q, &products, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("repository: failed to select products: %w", r.d.classify(err))
	}
	return products, nil
}

func (r *productRepository) Create(ctx context.Context, p *catalog.Product, initialStock int) error {
	return atomically(ctx, r.q, r.d, func(q querier) error {
		_, err := q.ExecContext(ctx, q.Rebind(`
			INSERT INTO products (id, name, description, price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			p.ID, p.Name, p.Description, p.Price, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert product: %w", r.d.classify(err))
		}

		_, err = q.ExecContext(ctx, q.Rebind(`
			INSERT INTO inventory (product_id, stock, updated_at) VALUES (?, ?, ?)`),
			p.ID, initialStock, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert inventory for product %s: %w", p.ID, r.d.classify(err))
		}
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, p *catalog.Product) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE products SET name = ?, description = ?, price = ?, updated_at = ? WHERE id = ?`),
		p.Name, p.Description, p.Price, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, r.d.classify(err))
	}
	return requireAffected(res, catalog.ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		if r.d.isForeignKey(err) {
			return catalog.ErrProductInUse
		}
		return fmt.Errorf("repository: failed to delete product %s: %w", id, r.d.classify(err))
	}
	return requireAffected(res, catalog.ErrProductNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
