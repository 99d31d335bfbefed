package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
)

type CatalogRepo struct{ DB querier }

const selectProduct = `SELECT id, name, price, stock FROM products WHERE id=$1`

func (r *CatalogRepo) Get(ctx context.Context, id int64) (orders.Product, error) {
	return r.scan(r.DB.QueryRow(ctx, selectProduct, id))
}

// GetForCheckout: lock baris product sampai transaksi selesai.
func (r *CatalogRepo) GetForCheckout(ctx context.Context, id int64) (orders.Product, error) {
	return r.scan(r.DB.QueryRow(ctx, selectProduct+` FOR UPDATE`, id))
}

func (r *CatalogRepo) scan(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.Product{}, orders.ErrProductNotFound
		}
		return orders.Product{}, mapErr(err)
	}
	return p, nil
}

func (r *CatalogRepo) TryDecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, mapErr(err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *CatalogRepo) IncrementStock(ctx context.Context, id int64, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, id, qty)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: product %d missing", orders.ErrIntegrity, id)
	}
	return nil
}

// UpsertProduct is used for seeding and by catalog admin tooling.
func (r *CatalogRepo) UpsertProduct(ctx context.Context, p orders.Product) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, price, stock) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price,
			stock=EXCLUDED.stock, updated_at=now()
		RETURNING id`, p.ID, p.Name, p.Price, p.Stock).Scan(&id)
	return id, mapErr(err)
}
