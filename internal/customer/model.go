package customer

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound = errors.New("customer not found")
	ErrInactive = errors.New("customer is inactive")

	ErrUsernameTaken = errors.New("username already exists")
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Principal is the authenticated caller. It is produced outside the core
// and passed explicitly into every operation that needs it.
type Principal struct {
	Username string
	Role     Role
}

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	FindByUsername(ctx context.Context, username string) (*Customer, error)
	ListActive(ctx context.Context) ([]Customer, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// CountOrders returns how many orders the customer has placed so far.
	CountOrders(ctx context.Context, id uuid.UUID) (int64, error)
}
