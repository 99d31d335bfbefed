package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

var readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

func TestStore_BeginSetsLockTimeout(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '1500ms'")).
		WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectRollback()

	st := &Store{DB: mock, LockTimeout: 1500 * time.Millisecond}
	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(context.Background()))
}

func TestCatalogRepo_TryDecrementStock(t *testing.T) {
	mock := newMock(t)
	q := regexp.QuoteMeta("SET stock = stock - $2, updated_at = now()")
	mock.ExpectExec(q).WithArgs(int64(1), 2).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q).WithArgs(int64(1), 9).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := &CatalogRepo{DB: mock}
	ok, err := repo.TryDecrementStock(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryDecrementStock(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogRepo_IncrementStockMissingProduct(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET stock = stock + $2")).
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := (&CatalogRepo{DB: mock}).IncrementStock(context.Background(), 7, 1)
	assert.ErrorIs(t, err, orders.ErrIntegrity)
}

func TestCatalogRepo_GetForCheckoutLocksRow(t *testing.T) {
	mock := newMock(t)
	cols := []string{"id", "name", "price", "stock"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(1), "A", decimal.RequireFromString("10.50"), 4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(cols))

	repo := &CatalogRepo{DB: mock}
	p, err := repo.GetForCheckout(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Name)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, "10.5", p.Price.String())

	_, err = repo.GetForCheckout(context.Background(), 2)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{codeLockNotAvailable, orders.ErrStoreConflict},
		{codeDeadlockDetected, orders.ErrStoreConflict},
		{codeSerializationFailure, orders.ErrStoreConflict},
		{codeCheckViolation, orders.ErrIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapErr(&pgconn.PgError{Code: tt.code})
			assert.ErrorIs(t, err, tt.want)
			var pgErr *pgconn.PgError
			assert.ErrorAs(t, err, &pgErr, "driver error stays reachable")
		})
	}
	assert.ErrorIs(t, mapErr(context.DeadlineExceeded), orders.ErrStoreConflict)
	assert.NoError(t, mapErr(nil))
}

func TestCartRepo_DeleteReportsMissingLine(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := (&CartRepo{DB: mock}).Delete(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerRepo_UpdateStatusUnknownOrder(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=$2")).
		WithArgs(int64(5), "shipped").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := (&LedgerRepo{DB: mock}).UpdateStatus(context.Background(), 5, orders.StatusShipped)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}
