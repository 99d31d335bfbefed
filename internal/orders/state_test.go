package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

func placeOrder(t *testing.T, f *fixture, userID int64) orders.Order {
	t.Helper()
	f.add(t, userID, 1, 2)
	f.add(t, userID, 2, 1)
	o, err := f.svc.CreateOrder(context.Background(), userID, "addr")
	require.NoError(t, err)
	return o
}

func twoProducts() []orders.Product {
	return []orders.Product{
		{ID: 1, Name: "A", Price: dec("10"), Stock: 10},
		{ID: 2, Name: "B", Price: dec("5"), Stock: 10},
	}
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	o := placeOrder(t, f, 1)
	require.Equal(t, 8, f.stock(t, 1))
	require.Equal(t, 9, f.stock(t, 2))

	got, err := f.svc.CancelOrder(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.Equal(t, 10, f.stock(t, 1))
	assert.Equal(t, 10, f.stock(t, 2))

	// the owner cannot cancel again
	_, err = f.svc.CancelOrder(ctx, o.ID, 1)
	assert.ErrorIs(t, err, orders.ErrInvalidStateTransition)

	// the admin path is a no-op on an already cancelled order
	got, err = f.svc.UpdateOrderStatus(ctx, o.ID, orders.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)

	assert.Equal(t, 10, f.stock(t, 1), "no double credit")
	assert.Equal(t, 10, f.stock(t, 2), "no double credit")
	assert.Equal(t, []string{orders.EventOrderCreated, orders.EventOrderStatusChanged}, f.events.types())
}

func TestCancelOrder_OnlyPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	o := placeOrder(t, f, 1)

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, orders.StatusProcessing)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, o.ID, 1)
	require.ErrorIs(t, err, orders.ErrInvalidStateTransition)

	got, err := f.svc.GetOrderByID(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusProcessing, got.Status)
	assert.Equal(t, 8, f.stock(t, 1))
	assert.Equal(t, 9, f.stock(t, 2))
}

func TestCancelOrder_OtherUsersOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	o := placeOrder(t, f, 1)

	_, err := f.svc.CancelOrder(ctx, o.ID, 2)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	_, err = f.svc.CancelOrder(ctx, o.ID+100, 1)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.Equal(t, 8, f.stock(t, 1))
}

func TestUpdateOrderStatus_AdminCancelPersistsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	o := placeOrder(t, f, 1)

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, orders.StatusProcessing)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, o.ID, orders.StatusCancelled)
	require.NoError(t, err)

	got, err := f.svc.GetOrderByID(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.Equal(t, 10, f.stock(t, 1))
	assert.Equal(t, 10, f.stock(t, 2))
}

func TestUpdateOrderStatus_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	o := placeOrder(t, f, 1)

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, orders.Status("refunded"))
	assert.ErrorIs(t, err, orders.ErrInvalidStatus)

	_, err = f.svc.UpdateOrderStatus(ctx, 999, orders.StatusShipped)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	// without strict mode any known status is accepted
	got, err := f.svc.UpdateOrderStatus(ctx, o.ID, orders.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivered, got.Status)
}

func TestUpdateOrderStatus_StrictTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProducts()...)
	strict := orders.NewService(f.store, orders.WithLogger(quiet), orders.WithStrictTransitions(true))
	o := placeOrder(t, f, 1)

	_, err := strict.UpdateOrderStatus(ctx, o.ID, orders.StatusDelivered)
	require.ErrorIs(t, err, orders.ErrInvalidStateTransition)
	assert.ErrorContains(t, err, "pending -> delivered")

	for _, s := range []orders.Status{orders.StatusProcessing, orders.StatusShipped, orders.StatusDelivered} {
		_, err := strict.UpdateOrderStatus(ctx, o.ID, s)
		require.NoError(t, err, "to %s", s)
	}
	_, err = strict.UpdateOrderStatus(ctx, o.ID, orders.StatusCancelled)
	assert.ErrorIs(t, err, orders.ErrInvalidStateTransition)
	assert.ErrorContains(t, err, "order is already delivered")
	assert.Equal(t, 8, f.stock(t, 1))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to orders.Status
		want     bool
	}{
		{orders.StatusPending, orders.StatusProcessing, true},
		{orders.StatusPending, orders.StatusCancelled, true},
		{orders.StatusPending, orders.StatusShipped, false},
		{orders.StatusProcessing, orders.StatusShipped, true},
		{orders.StatusProcessing, orders.StatusCancelled, true},
		{orders.StatusShipped, orders.StatusDelivered, true},
		{orders.StatusShipped, orders.StatusCancelled, false},
		{orders.StatusDelivered, orders.StatusCancelled, false},
		{orders.StatusCancelled, orders.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, orders.CanTransition(tt.from, tt.to))
		})
	}
	assert.True(t, orders.StatusDelivered.Terminal())
	assert.True(t, orders.StatusCancelled.Terminal())
	assert.False(t, orders.StatusPending.Terminal())
}
