package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
)

type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	SearchByName(ctx context.Context, fragment string) ([]Product, error)
	SearchByPrice(ctx context.Context, min, max decimal.Decimal) ([]Product, error)
	CreateProduct(ctx context.Context, caller customer.Principal, p *Product, initialStock int) (*Product, error)
	UpdateProduct(ctx context.Context, caller customer.Principal, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, caller customer.Principal, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) SearchByName(ctx context.Context, fragment string) ([]Product, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("%w: search term is empty", ErrInvalidProduct)
	}
	products, err := s.repo.SearchByName(ctx, fragment)
	if err != nil {
		return nil, fmt.Errorf("service: failed to search products by name: %w", err)
	}
	return products, nil
}

func (s *service) SearchByPrice(ctx context.Context, min, max decimal.Decimal) ([]Product, error) {
	if min.IsNegative() || max.LessThan(min) {
		return nil, fmt.Errorf("%w: price range [%s, %s] is invalid", ErrInvalidProduct, min, max)
	}
	products, err := s.repo.SearchByPrice(ctx, min, max)
	if err != nil {
		return nil, fmt.Errorf("service: failed to search products by price: %w", err)
	}
	return products, nil
}

func (s *service) CreateProduct(ctx context.Context, caller customer.Principal, p *Product, initialStock int) (*Product, error) {
	if err := customer.Authorize(caller.Role, customer.OpManageCatalog); err != nil {
		return nil, err
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if initialStock < 0 {
		return nil, fmt.Errorf("%w: initial stock cannot be negative", ErrInvalidProduct)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate product ID: %w", err)
	}
	now := time.Now().UTC()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p, initialStock); err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Int("initial_stock", initialStock).Msg("service: product created")
	return p, nil
}

// UpdateProduct changes name, description and price. Past order lines keep
// the unit price captured when they were placed.
func (s *service) UpdateProduct(ctx context.Context, caller customer.Principal, p *Product) (*Product, error) {
	if err := customer.Authorize(caller.Role, customer.OpManageCatalog); err != nil {
		return nil, err
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, caller customer.Principal, id uuid.UUID) error {
	if err := customer.Authorize(caller.Role, customer.OpManageCatalog); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		log.Info().Stringer("product_id", id).Msg("service: product deleted")
		return nil
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductInUse):
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: product not deleted")
		return err
	default:
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
}

func validateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	}
	// Prices are stored as NUMERIC(12,2).
	if !p.Price.Equal(p.Price.Round(2)) {
		return fmt.Errorf("%w: price %s has more than two decimal places", ErrInvalidProduct, p.Price)
	}
	return nil
}
