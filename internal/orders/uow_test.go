package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cart-checkout/internal/memstore"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

func TestRunInTx_RollsBackOnError(t *testing.T) {
	st := memstore.New()
	st.PutProduct(orders.Product{ID: 1, Name: "A", Price: dec("1"), Stock: 5})
	boom := errors.New("boom")

	err := orders.RunInTx(context.Background(), st, func(ctx context.Context, uow orders.UnitOfWork) error {
		ok, err := uow.Catalog().TryDecrementStock(ctx, 1, 5)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, _ := st.Product(1)
	assert.Equal(t, 5, p.Stock)
}

func TestRunInTx_RollsBackOnPanic(t *testing.T) {
	st := memstore.New()
	st.PutProduct(orders.Product{ID: 1, Name: "A", Price: dec("1"), Stock: 5})

	assert.PanicsWithError(t, "order 0: broken", func() {
		_ = orders.RunInTx(context.Background(), st, func(ctx context.Context, uow orders.UnitOfWork) error {
			_, _ = uow.Catalog().TryDecrementStock(ctx, 1, 2)
			panic(&orders.IntegrityError{Reason: "broken"})
		})
	})

	// the lock was released and nothing was applied
	p, ok := st.Product(1)
	require.True(t, ok)
	assert.Equal(t, 5, p.Stock)
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	st := memstore.New()
	st.PutProduct(orders.Product{ID: 1, Name: "A", Price: dec("1"), Stock: 5})

	err := orders.RunInTx(context.Background(), st, func(ctx context.Context, uow orders.UnitOfWork) error {
		return uow.Catalog().IncrementStock(ctx, 1, 3)
	})
	require.NoError(t, err)
	p, _ := st.Product(1)
	assert.Equal(t, 8, p.Stock)
}

func TestIncrementStock_MissingProductIsIntegrityError(t *testing.T) {
	st := memstore.New()
	err := orders.RunInTx(context.Background(), st, func(ctx context.Context, uow orders.UnitOfWork) error {
		return uow.Catalog().IncrementStock(ctx, 404, 1)
	})
	assert.ErrorIs(t, err, orders.ErrIntegrity)
}
