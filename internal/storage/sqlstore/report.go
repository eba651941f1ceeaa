package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

type reportRepository struct {
	q querier
	d Dialect
}

func (r *reportRepository) ActiveProducts(ctx context.Context) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0)
	query := `
		SELECT p.id, p.name, p.description, p.price, p.created_at, p.updated_at
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		WHERE i.stock > 0
		ORDER BY p.id`
	if err := sqlx.SelectContext(ctx, r.q, &products, query); err != nil {
		return nil, fmt.Errorf("repository: failed to select active products: %w", r.d.classify(err))
	}
	return products, nil
}

func (r *reportRepository) TopSoldProducts(ctx context.Context, limit int) ([]report.ProductSales, error) {
	sales := make([]report.ProductSales, 0, limit)
	query := r.q.Rebind(`
		SELECT p.id AS product_id, p.name AS name, SUM(l.quantity) AS quantity_sold
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		GROUP BY p.id, p.name
		ORDER BY quantity_sold DESC, p.id ASC
		LIMIT ?`)
	if err := sqlx.SelectContext(ctx, r.q, &sales, query, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to rank products: %w", r.d.classify(err))
	}
	return sales, nil
}

func (r *reportRepository) TopCustomers(ctx context.Context, limit int) ([]report.CustomerOrders, error) {
	customers := make([]report.CustomerOrders, 0, limit)
	query := r.q.Rebind(`
		SELECT c.id AS customer_id, c.username AS username, COUNT(o.id) AS order_count
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		GROUP BY c.id, c.username
		ORDER BY order_count DESC, c.id ASC
		LIMIT ?`)
	if err := sqlx.SelectContext(ctx, r.q, &customers, query, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to rank customers: %w", r.d.classify(err))
	}
	return customers, nil
}
