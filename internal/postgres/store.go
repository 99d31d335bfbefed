package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"time"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type querier interface {
	execer
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Store hands out units of work backed by one pgx transaction each.
type Store struct {
	DB TxBeginner
	// LockTimeout bounds how long a row lock is waited for. Zero keeps the
	// server default.
	LockTimeout time.Duration
}

func (s *Store) Begin(ctx context.Context) (orders.UnitOfWork, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, mapErr(err)
	}
	if s.LockTimeout > 0 {
		q := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, q); err != nil {
			_ = tx.Rollback(ctx)
			return nil, mapErr(err)
		}
	}
	return &unit{tx: tx}, nil
}

type unit struct{ tx pgx.Tx }

func (u *unit) Catalog() orders.CatalogAccessor { return &CatalogRepo{DB: u.tx} }
func (u *unit) Carts() orders.CartRepository    { return &CartRepo{DB: u.tx} }
func (u *unit) Orders() orders.Ledger           { return &LedgerRepo{DB: u.tx} }

func (u *unit) Commit(ctx context.Context) error { return mapErr(u.tx.Commit(ctx)) }

func (u *unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeCheckViolation       = "23514"
)

// mapErr turns lock/serialization failures into ErrStoreConflict and
// constraint breaks into ErrIntegrity; everything else passes through.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %w", orders.ErrStoreConflict, err)
		case codeCheckViolation:
			return fmt.Errorf("%w: %w", orders.ErrIntegrity, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", orders.ErrStoreConflict, err)
	}
	return err
}
