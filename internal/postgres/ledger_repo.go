package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo stores orders and order items. Only orders.status is ever updated.
type LedgerRepo struct{ DB querier }

func (r *LedgerRepo) Insert(ctx context.Context, o *orders.Order) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO orders(user_id, status, shipping_address, total_price)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		o.UserID, string(o.Status), o.ShippingAddress, o.TotalPrice,
	).Scan(&o.ID, &o.CreatedAt)
	return mapErr(err)
}

func (r *LedgerRepo) InsertItem(ctx context.Context, it *orders.OrderItem) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal,
	).Scan(&it.ID)
	return mapErr(err)
}

const selectOrder = `
	SELECT id, user_id, status, shipping_address, total_price, created_at
	FROM orders`

func (r *LedgerRepo) Get(ctx context.Context, orderID int64) (orders.Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE id=$1`, orderID)
}

func (r *LedgerRepo) GetForUpdate(ctx context.Context, orderID int64) (orders.Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE id=$1 FOR UPDATE`, orderID)
}

func (r *LedgerRepo) getOne(ctx context.Context, q string, orderID int64) (orders.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, q, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, mapErr(err)
	}
	items, err := r.items(ctx, []int64{o.ID})
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// ListByUser returns the user's orders newest first, with items.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, selectOrder+` WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []orders.Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	rows.Close()
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *LedgerRepo) items(ctx context.Context, orderIDs []int64) (map[int64][]orders.OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, id`, orderIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[int64][]orders.OrderItem, len(orderIDs))
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, mapErr(err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, mapErr(rows.Err())
}

func (r *LedgerRepo) UpdateStatus(ctx context.Context, orderID int64, status orders.Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, string(status))
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.ShippingAddress, &o.TotalPrice, &o.CreatedAt); err != nil {
		return orders.Order{}, err
	}
	o.Status = orders.Status(status)
	return o, nil
}
