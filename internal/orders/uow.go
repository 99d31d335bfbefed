package orders

import (
	"context"
	"errors"
	"fmt"
)

// UnitOfWork is one atomic group of storage mutations. Every repository it
// hands out shares the same underlying transaction.
type UnitOfWork interface {
	Catalog() CatalogAccessor
	Carts() CartRepository
	Orders() Ledger
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Beginner interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// RunInTx begins a unit of work, runs fn and commits. Any error or panic from
// fn rolls the unit back; a panic keeps propagating after the rollback.
func RunInTx(ctx context.Context, b Beginner, fn func(ctx context.Context, uow UnitOfWork) error) (err error) {
	uow, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	released := false
	defer func() {
		if released {
			return
		}
		if rbErr := uow.Rollback(context.WithoutCancel(ctx)); rbErr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(ctx, uow); err != nil {
		return err
	}
	// a failed commit already ends the transaction
	released = true
	if err = uow.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
