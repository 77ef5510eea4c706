package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager scopes a unit of work. Repositories called with the context passed
// to fn join the transaction; fn returning an error rolls everything back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PGTxManager struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewTxManager(db *pgxpool.Pool, lockTimeout time.Duration) TxManager {
	return &PGTxManager{db: db, lockTimeout: lockTimeout}
}

func (m *PGTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	// no-op after a successful commit
	defer tx.Rollback(context.WithoutCancel(ctx))

	if m.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())); err != nil {
			return mapError(fmt.Errorf("set lock timeout: %w", err))
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

var _ TxManager = (*PGTxManager)(nil)

type txKey struct{}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the transaction carried by ctx, or the pool outside a unit of work.
func conn(ctx context.Context, db *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// mapError translates Postgres failures that the booking manager reacts to.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001":
		return fmt.Errorf("%w: %w", domain.ErrWriteConflict, err)
	case "40P01":
		return fmt.Errorf("%w: %w", domain.ErrDeadlock, err)
	case "55P03", "57014":
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	}
	return err
}

func isForeignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
