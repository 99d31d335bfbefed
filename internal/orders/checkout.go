package orders

import (
	"context"
	"fmt"
	"github.com/shopspring/decimal"
	"sort"
)

// Checkout turns a user's cart into one order. It never commits on its own:
// the caller owns the unit of work and decides commit or rollback.
type Checkout struct{}

// Execute runs the checkout steps inside uow. On any error the caller must roll
// back; nothing written here is meant to survive a failed attempt.
func (Checkout) Execute(ctx context.Context, uow UnitOfWork, userID int64, shippingAddress string) (Order, error) {
	lines, err := uow.Carts().ListByUserForUpdate(ctx, userID)
	if err != nil {
		return Order{}, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	// lock product rows in id order so two carts with the same products cannot
	// deadlock each other
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	products := make(map[int64]Product, len(lines))
	total := decimal.Zero
	for _, ln := range lines {
		p, err := uow.Catalog().GetForCheckout(ctx, ln.ProductID)
		if err != nil {
			return Order{}, err
		}
		if p.Stock < ln.Quantity {
			return Order{}, &InsufficientStockError{ProductID: p.ID, Requested: ln.Quantity, Available: p.Stock}
		}
		products[p.ID] = p
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}

	order := Order{
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: shippingAddress,
		TotalPrice:      total,
	}
	if err := uow.Orders().Insert(ctx, &order); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	order.Items = make([]OrderItem, 0, len(lines))
	for _, ln := range lines {
		p := products[ln.ProductID]
		it := newOrderItem(p, ln.Quantity)
		it.OrderID = order.ID
		if err := uow.Orders().InsertItem(ctx, &it); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}

		ok, err := uow.Catalog().TryDecrementStock(ctx, p.ID, ln.Quantity)
		if err != nil {
			return Order{}, fmt.Errorf("decrement stock: %w", err)
		}
		if !ok {
			return Order{}, lostRace(ctx, uow, p, ln.Quantity)
		}
		order.Items = append(order.Items, it)
	}

	if _, err := uow.Carts().DeleteByUser(ctx, userID); err != nil {
		return Order{}, fmt.Errorf("clear cart: %w", err)
	}

	mustBalance(order)
	return order, nil
}

// lostRace reports the stock as it is now, not the value read under lock in
// step 2, which was already enough for the request.
func lostRace(ctx context.Context, uow UnitOfWork, p Product, qty int) error {
	available := 0
	if cur, err := uow.Catalog().Get(ctx, p.ID); err == nil {
		available = cur.Stock
	}
	return &InsufficientStockError{ProductID: p.ID, Requested: qty, Available: available}
}

// mustBalance panics when the order total drifts from its items. Reaching it
// means a bug, not bad input.
func mustBalance(o Order) {
	if sum := o.ItemsTotal(); !sum.Equal(o.TotalPrice) {
		panic(&IntegrityError{
			OrderID: o.ID,
			Reason:  fmt.Sprintf("total %s != sum of subtotals %s", o.TotalPrice, sum),
		})
	}
}
