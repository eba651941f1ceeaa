package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Ledger is the only writer of stock counters.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	rec, err := l.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrInventoryNotFound) {
			return 0, ErrInventoryNotFound
		}
		return 0, fmt.Errorf("ledger: failed to read stock for product %s: %w", productID, err)
	}
	return rec.Stock, nil
}

func (l *Ledger) List(ctx context.Context) ([]Record, error) {
	records, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to list stock: %w", err)
	}
	return records, nil
}

// Reserve atomically takes qty units and returns the stock left.
func (l *Ledger) Reserve(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}

	left, err := l.repo.Decrement(ctx, productID, qty)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			log.Warn().Err(err).Stringer("product_id", productID).Int("requested", qty).Msg("ledger: reservation refused")
			return 0, err
		case errors.Is(err, ErrInventoryNotFound), errors.Is(err, ErrConcurrencyConflict):
			return 0, err
		default:
			return 0, fmt.Errorf("ledger: failed to reserve product %s: %w", productID, err)
		}
	}

	log.Debug().Stringer("product_id", productID).Int("reserved", qty).Int("stock", left).Msg("ledger: stock reserved")
	return left, nil
}

// Release returns qty units to stock.
func (l *Ledger) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}

	stock, err := l.repo.Increment(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, ErrInventoryNotFound) || errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("ledger: failed to release product %s: %w", productID, err)
	}

	log.Debug().Stringer("product_id", productID).Int("released", qty).Int("stock", stock).Msg("ledger: stock released")
	return nil
}

// SetStock overwrites the counter. It is an administrative correction and
// never runs as part of order placement.
func (l *Ledger) SetStock(ctx context.Context, productID uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidQuantity)
	}
	if err := l.repo.SetStock(ctx, productID, stock); err != nil {
		if errors.Is(err, ErrInventoryNotFound) {
			return ErrInventoryNotFound
		}
		return fmt.Errorf("ledger: failed to set stock for product %s: %w", productID, err)
	}
	log.Info().Stringer("product_id", productID).Int("stock", stock).Msg("ledger: stock set")
	return nil
}
