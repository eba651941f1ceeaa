package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-core/internal/config"
	"github.com/vasiliy-maslov/shop-core/internal/db"
	"github.com/vasiliy-maslov/shop-core/internal/storage/sqlstore"
)

type openedStore struct {
	*sqlstore.Store
	ping  func(ctx context.Context) error
	close func()
}

// openStore connects to the configured database, applying migrations first
// when migrate is set.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (*openedStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if migrate {
			if err := db.MigratePostgres(cfg.Postgres); err != nil {
				return nil, err
			}
		}
		pg, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &openedStore{
			Store: sqlstore.New(pg.DB, sqlstore.Postgres(cfg.Postgres.LockTimeout)),
			ping:  pg.Pool.Ping,
			close: pg.Close,
		}, nil

	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.MigrateSQLite(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return &openedStore{
			Store: sqlstore.New(conn, sqlstore.SQLite(), sqlstore.WithTxTimeout(cfg.Postgres.LockTimeout)),
			ping:  conn.PingContext,
			close: func() {
				if err := conn.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close SQLite database")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
