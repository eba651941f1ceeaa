// Package sqlstore implements every repository of the service on top of
// sqlx, for PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
	"github.com/vasiliy-maslov/shop-core/internal/order"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
}

type repos struct {
	q querier
	d Dialect
}

func (r repos) Products() catalog.Repository    { return &productRepository{q: r.q, d: r.d} }
func (r repos) Inventory() inventory.Repository { return &inventoryRepository{q: r.q, d: r.d} }
func (r repos) Customers() customer.Repository  { return &customerRepository{q: r.q, d: r.d} }
func (r repos) Orders() order.Repository        { return &orderRepository{q: r.q, d: r.d} }
func (r repos) Reports() report.Repository      { return &reportRepository{q: r.q, d: r.d} }

// Store gives access to repositories outside a transaction and runs
// transactional work through Execute.
type Store struct {
	repos
	db        *sqlx.DB
	txTimeout time.Duration
}

type Option func(*Store)

// WithTxTimeout bounds every Execute call, including the wait for a free
// connection. A transaction that cannot start in time fails with
// inventory.ErrConcurrencyConflict.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) { s.txTimeout = d }
}

func New(db *sqlx.DB, d Dialect, opts ...Option) *Store {
	s := &Store{repos: repos{q: db, d: d}, db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos order.Repositories) error) (err error) {
	parent := ctx
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			log.Warn().Dur("timeout", s.txTimeout).Msg("repository: timed out waiting for a connection")
			return fmt.Errorf("%w: no connection within %s", inventory.ErrConcurrencyConflict, s.txTimeout)
		}
		return s.d.classify(fmt.Errorf("repository: failed to begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("repository: panic recovered inside transaction, rolling back")
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("repository: failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error().Err(rbErr).Msg("repository: failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				log.Error().Err(commitErr).Msg("repository: failed to commit transaction")
				err = s.d.classify(fmt.Errorf("repository: failed to commit transaction: %w", commitErr))
			}
		}
	}()

	if err = s.d.beginTx(ctx, tx); err != nil {
		return s.d.classify(fmt.Errorf("repository: failed to prepare transaction: %w", err))
	}

	return fn(ctx, repos{q: tx, d: s.d})
}

// atomically runs fn in a transaction unless q already is one.
func atomically(ctx context.Context, q querier, d Dialect, fn func(q querier) error) (err error) {
	db, ok := q.(*sqlx.DB)
	if !ok {
		return fn(q)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = d.classify(fmt.Errorf("repository: failed to commit transaction: %w", commitErr))
		}
	}()

	if err = d.beginTx(ctx, tx); err != nil {
		return d.classify(err)
	}
	return fn(tx)
}
