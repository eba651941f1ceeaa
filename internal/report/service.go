// Package report provides read-only sales aggregations across products,
// inventory and orders.
package report

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopN = 5
	MaxTopN     = 100
)

type ProductSales struct {
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	Name         string    `json:"name" db:"name"`
	QuantitySold int64     `json:"quantity_sold" db:"quantity_sold"`
}

type CustomerOrders struct {
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Username   string    `json:"username" db:"username"`
	OrderCount int64     `json:"order_count" db:"order_count"`
}

type Summary struct {
	ActiveProducts  []catalog.Product `json:"active_products"`
	TopSoldProducts []ProductSales    `json:"top_sold_products"`
	TopCustomers    []CustomerOrders  `json:"top_customers"`
}

// Repository implementations must order rankings by the aggregate
// descending and then by id ascending, and must order active products by id.
type Repository interface {
	ActiveProducts(ctx context.Context) ([]catalog.Product, error)
	TopSoldProducts(ctx context.Context, limit int) ([]ProductSales, error)
	TopCustomers(ctx context.Context, limit int) ([]CustomerOrders, error)
}

type Service interface {
	ActiveProducts(ctx context.Context) ([]catalog.Product, error)
	TopSoldProducts(ctx context.Context, n int) ([]ProductSales, error)
	TopCustomers(ctx context.Context, n int) ([]CustomerOrders, error)
	Summary(ctx context.Context, n int) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ActiveProducts(ctx context.Context) ([]catalog.Product, error) {
	products, err := s.repo.ActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: failed to list active products: %w", err)
	}
	return products, nil
}

func (s *service) TopSoldProducts(ctx context.Context, n int) ([]ProductSales, error) {
	n = clampTopN(n)
	sales, err := s.repo.TopSoldProducts(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("report: failed to rank products: %w", err)
	}
	return truncate(sales, n), nil
}

func (s *service) TopCustomers(ctx context.Context, n int) ([]CustomerOrders, error) {
	n = clampTopN(n)
	customers, err := s.repo.TopCustomers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("report: failed to rank customers: %w", err)
	}
	return truncate(customers, n), nil
}

// Summary runs the three reports concurrently.
func (s *service) Summary(ctx context.Context, n int) (*Summary, error) {
	var sum Summary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sum.ActiveProducts, err = s.ActiveProducts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		sum.TopSoldProducts, err = s.TopSoldProducts(ctx, n)
		return err
	})
	g.Go(func() error {
		var err error
		sum.TopCustomers, err = s.TopCustomers(ctx, n)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("report: summary failed")
		return nil, err
	}
	return &sum, nil
}

func clampTopN(n int) int {
	switch {
	case n <= 0:
		return DefaultTopN
	case n > MaxTopN:
		return MaxTopN
	default:
		return n
	}
}

func truncate[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
