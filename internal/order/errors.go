package order

import (
	"errors"
	"fmt"

	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrValidation       = errors.New("invalid order request")
	ErrDuplicateRequest = errors.New("order request already in progress or completed")

	ErrCustomerNotFound    = customer.ErrNotFound
	ErrCustomerInactive    = customer.ErrInactive
	ErrProductNotFound     = catalog.ErrProductNotFound
	ErrInventoryNotFound   = inventory.ErrInventoryNotFound
	ErrInsufficientStock   = inventory.ErrInsufficientStock
	ErrConcurrencyConflict = inventory.ErrConcurrencyConflict
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PlacementError records the state in which order placement stopped.
type PlacementError struct {
	State State
	Err   error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("order placement failed while %s: %v", e.State, e.Err)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}
