package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

func TestBegin_TimesOutAsStoreConflict(t *testing.T) {
	st := New()
	held, err := st.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = st.Begin(ctx)
	assert.ErrorIs(t, err, orders.ErrStoreConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Rollback(context.Background()))
	next, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Commit(context.Background()))
}

func TestTx_FinishedUnitRejectsWork(t *testing.T) {
	st := New()
	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Commit(context.Background()))

	_, err = uow.Catalog().Get(context.Background(), 1)
	assert.ErrorIs(t, err, errTxDone)
	assert.ErrorIs(t, uow.Commit(context.Background()), errTxDone)
	assert.NoError(t, uow.Rollback(context.Background()), "rollback after commit is a no-op")
}

func TestTx_ChangesInvisibleUntilCommit(t *testing.T) {
	st := New()
	st.PutProduct(orders.Product{ID: 1, Name: "A", Price: decimal.NewFromInt(2), Stock: 3})

	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	ok, err := uow.Catalog().TryDecrementStock(context.Background(), 1, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = uow.Catalog().TryDecrementStock(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stock never goes negative")

	assert.Equal(t, 3, st.data.products[1].Stock)
	require.NoError(t, uow.Commit(context.Background()))
	assert.Equal(t, 0, st.data.products[1].Stock)
}

func TestCarts_SaveKeepsIdentityAndOrder(t *testing.T) {
	st := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	st.Now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := uow.Carts().Save(ctx, orders.CartLine{UserID: 1, ProductID: 9, Quantity: 1})
	require.NoError(t, err)
	_, err = uow.Carts().Save(ctx, orders.CartLine{UserID: 1, ProductID: 3, Quantity: 1})
	require.NoError(t, err)
	again, err := uow.Carts().Save(ctx, orders.CartLine{UserID: 1, ProductID: 9, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)

	lines, err := uow.Carts().ListByUserForUpdate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(9), lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)
	require.NoError(t, uow.Rollback(ctx))
}
