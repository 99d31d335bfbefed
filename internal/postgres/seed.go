package postgres

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
)

// SeedCatalog upserts products in one transaction and moves the id sequence
// past the highest seeded id so later inserts without an id do not collide.
func SeedCatalog(ctx context.Context, db TxBeginner, products []orders.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	if err := seed(ctx, tx, products); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return mapErr(tx.Commit(ctx))
}

func seed(ctx context.Context, tx pgx.Tx, products []orders.Product) error {
	repo := &CatalogRepo{DB: tx}
	for _, p := range products {
		if _, err := repo.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('products', 'id'),
			(SELECT COALESCE(MAX(id), 1) FROM products))`); err != nil {
		return fmt.Errorf("seed: bump product sequence: %w", mapErr(err))
	}
	return nil
}
