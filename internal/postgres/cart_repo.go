package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
)

type CartRepo struct{ DB querier }

const selectCartLines = `
	SELECT id, user_id, product_id, quantity, created_at
	FROM cart_items WHERE user_id=$1`

func (r *CartRepo) Get(ctx context.Context, userID, productID int64) (orders.CartLine, error) {
	var ln orders.CartLine
	err := r.DB.QueryRow(ctx, selectCartLines+` AND product_id=$2`, userID, productID).
		Scan(&ln.ID, &ln.UserID, &ln.ProductID, &ln.Quantity, &ln.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartLine{}, orders.ErrNotFoundInCart
	}
	return ln, mapErr(err)
}

func (r *CartRepo) ListByUserForUpdate(ctx context.Context, userID int64) ([]orders.CartLine, error) {
	return r.list(ctx, selectCartLines+` ORDER BY created_at, id FOR UPDATE`, userID)
}

func (r *CartRepo) list(ctx context.Context, q string, userID int64) ([]orders.CartLine, error) {
	rows, err := r.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []orders.CartLine
	for rows.Next() {
		var ln orders.CartLine
		if err := rows.Scan(&ln.ID, &ln.UserID, &ln.ProductID, &ln.Quantity, &ln.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, ln)
	}
	return out, mapErr(rows.Err())
}

func (r *CartRepo) ListWithProducts(ctx context.Context, userID int64) ([]orders.CartItemView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at,
		       p.id, p.name, p.price, p.stock
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1
		ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []orders.CartItemView
	for rows.Next() {
		var v orders.CartItemView
		if err := rows.Scan(&v.ID, &v.UserID, &v.ProductID, &v.Quantity, &v.CreatedAt,
			&v.Product.ID, &v.Product.Name, &v.Product.Price, &v.Product.Stock); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, v)
	}
	return out, mapErr(rows.Err())
}

// Save inserts or overwrites the quantity of the (user, product) line.
func (r *CartRepo) Save(ctx context.Context, ln orders.CartLine) (orders.CartLine, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING id, created_at`, ln.UserID, ln.ProductID, ln.Quantity).Scan(&ln.ID, &ln.CreatedAt)
	if err != nil {
		return orders.CartLine{}, mapErr(err)
	}
	return ln, nil
}

func (r *CartRepo) Delete(ctx context.Context, userID, productID int64) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return false, mapErr(err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *CartRepo) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(ct.RowsAffected()), nil
}
