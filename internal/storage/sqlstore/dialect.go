package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect holds what differs between the supported databases. Query text
// is shared and rebound by sqlx.
type Dialect struct {
	Name string

	beginTx      func(ctx context.Context, tx *sqlx.Tx) error
	isConflict   func(err error) bool
	isForeignKey func(err error) bool
	isUniqueKey  func(err error) bool
}

// Postgres bounds every lock wait inside a transaction by lockTimeout.
func Postgres(lockTimeout time.Duration) Dialect {
	return Dialect{
		Name: "postgres",
		beginTx: func(ctx context.Context, tx *sqlx.Tx) error {
			if lockTimeout <= 0 {
				return nil
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds()))
			return err
		},
		isConflict: func(err error) bool {
			return pgCode(err, pgerrcode.LockNotAvailable, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected)
		},
		isForeignKey: func(err error) bool {
			return pgCode(err, pgerrcode.ForeignKeyViolation)
		},
		isUniqueKey: func(err error) bool {
			return pgCode(err, pgerrcode.UniqueViolation)
		},
	}
}

func SQLite() Dialect {
	return Dialect{
		Name:    "sqlite",
		beginTx: func(context.Context, *sqlx.Tx) error { return nil },
		isConflict: func(err error) bool {
			code, ok := sqliteCode(err)
			return ok && (code&0xff == sqlite3.SQLITE_BUSY || code&0xff == sqlite3.SQLITE_LOCKED)
		},
		isForeignKey: func(err error) bool {
			code, ok := sqliteCode(err)
			return ok && (code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
				(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "FOREIGN KEY")))
		},
		isUniqueKey: func(err error) bool {
			code, ok := sqliteCode(err)
			return ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
				(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE")))
		},
	}
}

// classify turns lock and serialization failures into ErrConcurrencyConflict.
func (d Dialect) classify(err error) error {
	if err == nil || errors.Is(err, inventory.ErrConcurrencyConflict) {
		return err
	}
	if d.isConflict(err) {
		return fmt.Errorf("%w: %v", inventory.ErrConcurrencyConflict, err)
	}
	return err
}

func pgCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.Code(), true
}
