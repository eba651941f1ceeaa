package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	Resolve(ctx context.Context, username string) (*Customer, error)
	Create(ctx context.Context, c *Customer) (*Customer, error)
	ListActive(ctx context.Context, caller Principal) ([]Customer, error)
	Deactivate(ctx context.Context, caller Principal, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Resolve finds an active customer by username.
func (s *service) Resolve(ctx context.Context, username string) (*Customer, error) {
	c, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("username", username).Msg("service: customer not found")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve customer: %w", err)
	}
	if !c.Active {
		log.Warn().Stringer("customer_id", c.ID).Msg("service: customer is inactive")
		return nil, ErrInactive
	}
	return c, nil
}

func (s *service) Create(ctx context.Context, c *Customer) (*Customer, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		return nil, errors.New("service: username is required")
	}
	if c.Role == "" {
		c.Role = RoleUser
	}
	if !c.Role.Valid() {
		return nil, fmt.Errorf("service: unknown role %q", c.Role)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate customer ID: %w", err)
	}
	c.ID = id
	c.Active = true
	c.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("service: failed to create customer: %w", err)
	}

	log.Info().Stringer("customer_id", c.ID).Str("role", c.Role.String()).Msg("service: customer created")
	return c, nil
}

func (s *service) ListActive(ctx context.Context, caller Principal) ([]Customer, error) {
	if err := Authorize(caller.Role, OpManageCustomers); err != nil {
		return nil, err
	}
	customers, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *service) Deactivate(ctx context.Context, caller Principal, id uuid.UUID) error {
	if err := Authorize(caller.Role, OpManageCustomers); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to deactivate customer: %w", err)
	}
	log.Info().Stringer("customer_id", id).Str("by", caller.Username).Msg("service: customer deactivated")
	return nil
}
