package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CustomerID uuid.UUID       `json:"customer_id" db:"customer_id"`
	PlacedAt   time.Time       `json:"placed_at" db:"placed_at"`
	Total      decimal.Decimal `json:"total" db:"total"`
	Discount   decimal.Decimal `json:"discount" db:"discount"`
	IsRandom   bool            `json:"is_random" db:"is_random"`
	Lines      []Line          `json:"lines,omitempty" db:"-"`
}

// Line is one basket entry of a placed order. UnitPrice is the catalog
// price at the moment the order was placed.
type Line struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

type Item struct {
	ProductID uuid.UUID
	Quantity  int
}

type PlaceOrderRequest struct {
	Items    []Item
	IsRandom bool
	// IdempotencyKey is optional; a repeated key is rejected while the first
	// request holds it.
	IdempotencyKey string
}

// OrderWithLines is the read model returned by GetOrderWithLines. A missing
// order yields a nil Order and an empty Lines slice.
type OrderWithLines struct {
	Order *Order `json:"order"`
	Lines []Line `json:"order_lines"`
}

// State is a step of order placement.
type State string

const (
	StateValidating State = "validating"
	StatePricing    State = "pricing"
	StateReserving  State = "reserving"
	StatePersisting State = "persisting"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

func (s State) String() string {
	return string(s)
}
