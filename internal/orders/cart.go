package orders

import (
	"context"
	"errors"
	"github.com/shopspring/decimal"
	"log/slog"
	"time"
)

// CartStore manages per-user cart lines. Its stock check is advisory: it reads
// without locking, so only checkout decides whether stock is really there.
type CartStore struct {
	Store  Beginner
	Logger *slog.Logger
	Now    func() time.Time
}

func NewCartStore(store Beginner, logger *slog.Logger) *CartStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartStore{Store: store, Logger: logger, Now: time.Now}
}

// AddItem adds qty of a product, merging with an existing line.
func (c *CartStore) AddItem(ctx context.Context, userID, productID int64, qty int) (CartLine, error) {
	if qty <= 0 {
		return CartLine{}, ErrInvalidQuantity
	}

	var saved CartLine
	err := RunInTx(ctx, c.Store, func(ctx context.Context, uow UnitOfWork) error {
		p, err := uow.Catalog().Get(ctx, productID)
		if err != nil {
			return err
		}

		line, err := uow.Carts().Get(ctx, userID, productID)
		switch {
		case errors.Is(err, ErrNotFoundInCart):
			line = CartLine{UserID: userID, ProductID: productID, CreatedAt: c.Now().UTC()}
		case err != nil:
			return err
		}

		total := line.Quantity + qty
		if total > p.Stock {
			return &InsufficientStockError{ProductID: productID, Requested: total, Available: p.Stock}
		}
		line.Quantity = total

		saved, err = uow.Carts().Save(ctx, line)
		return err
	})
	if err != nil {
		return CartLine{}, err
	}
	c.Logger.DebugContext(ctx, "cart item added",
		"user_id", userID, "product_id", productID, "qty", saved.Quantity)
	return saved, nil
}

// GetItems returns the user's lines joined with the current product rows.
func (c *CartStore) GetItems(ctx context.Context, userID int64) ([]CartItemView, error) {
	var out []CartItemView
	err := RunInTx(ctx, c.Store, func(ctx context.Context, uow UnitOfWork) error {
		items, err := uow.Carts().ListWithProducts(ctx, userID)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].LineTotal = items[i].Product.Price.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		}
		out = items
		return nil
	})
	return out, err
}

func (c *CartStore) RemoveItem(ctx context.Context, userID, productID int64) error {
	return RunInTx(ctx, c.Store, func(ctx context.Context, uow UnitOfWork) error {
		ok, err := uow.Carts().Delete(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFoundInCart
		}
		return nil
	})
}

// Clear drops every line of the user. Clearing an empty cart is fine.
func (c *CartStore) Clear(ctx context.Context, userID int64) error {
	return RunInTx(ctx, c.Store, func(ctx context.Context, uow UnitOfWork) error {
		_, err := uow.Carts().DeleteByUser(ctx, userID)
		return err
	})
}
