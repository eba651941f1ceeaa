package order

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
)

type Repository interface {
	// Create inserts the order row followed by its lines.
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order with its lines or ErrOrderNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
}

// Repositories are bound to a single transaction.
type Repositories interface {
	Products() catalog.Repository
	Inventory() inventory.Repository
	Customers() customer.Repository
	Orders() Repository
}

// TransactionScope runs fn in one transaction. It commits when fn returns
// nil and rolls back otherwise, including when fn panics.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Publisher announces committed orders.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

// IdempotencyGuard deduplicates placement requests carrying the same key.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderPlaced(context.Context, *Order) error { return nil }

type nopGuard struct{}

func (nopGuard) Claim(context.Context, string) (bool, error) { return true, nil }

func (nopGuard) Release(context.Context, string) error { return nil }
