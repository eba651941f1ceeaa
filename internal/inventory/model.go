package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrInventoryNotFound   = errors.New("inventory record not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
)

// InsufficientStockError identifies the product whose stock could not cover a reservation.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type Record struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Stock     int       `json:"stock" db:"stock"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Repository persists inventory records. Decrement must check and write in
// one statement: it either lowers stock by qty when stock >= qty, or
// changes nothing and reports why.
type Repository interface {
	Get(ctx context.Context, productID uuid.UUID) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Decrement(ctx context.Context, productID uuid.UUID, qty int) (int, error)
	Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error)
	SetStock(ctx context.Context, productID uuid.UUID, stock int) error
}
