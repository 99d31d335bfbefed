package orders

import (
	"context"
)

// CatalogAccessor reads and mutates product rows. Implementations are bound to
// one unit of work; there is no way to reach the catalog outside of one.
type CatalogAccessor interface {
	Get(ctx context.Context, productID int64) (Product, error)
	// GetForCheckout is a locking read (row lock held until the unit ends).
	GetForCheckout(ctx context.Context, productID int64) (Product, error)
	// TryDecrementStock is a conditional update; false means stock < qty.
	TryDecrementStock(ctx context.Context, productID int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID int64, qty int) error
}

type CartRepository interface {
	Get(ctx context.Context, userID, productID int64) (CartLine, error)
	// ListByUserForUpdate locks the user's lines so two checkouts of the same
	// cart serialize.
	ListByUserForUpdate(ctx context.Context, userID int64) ([]CartLine, error)
	ListWithProducts(ctx context.Context, userID int64) ([]CartItemView, error)
	Save(ctx context.Context, line CartLine) (CartLine, error)
	Delete(ctx context.Context, userID, productID int64) (bool, error)
	DeleteByUser(ctx context.Context, userID int64) (int, error)
}

// Ledger stores orders and their items. Rows are append-only except status.
type Ledger interface {
	Insert(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, it *OrderItem) error
	Get(ctx context.Context, orderID int64) (Order, error)
	GetForUpdate(ctx context.Context, orderID int64) (Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status Status) error
}

// EventPublisher receives events after a unit of work has committed.
type EventPublisher interface {
	Publish(ctx context.Context, key []byte, ev Envelope) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []byte, Envelope) error { return nil }
