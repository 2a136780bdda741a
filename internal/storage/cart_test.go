package storage_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/storefront/internal/storage"
)

var cartCols = []string{"id", "user_id", "product_id", "name", "price", "stock_quantity", "quantity", "created_at"}

func TestGetItemsByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ci.user_id = $1 ORDER BY ci.created_at, ci.id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cartCols).
			AddRow(int64(1), int64(7), int64(10), "Headphones", "100.00", 5, 2, time.Now()))

	items, err := repo.GetItemsByUserID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "200", items[0].LineTotal().String())
	assert.Equal(t, 5, items[0].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_Upserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity")).
		WithArgs(int64(7), int64(10), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := repo.AddItem(context.Background(), 7, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// строки корзины всегда ищутся вместе с владельцем, чужой id даёт ErrCartItemNotFound
func TestCartMutations_ScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()
	const owner, stranger, itemID = int64(7), int64(8), int64(3)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ci.id = $1 AND ci.user_id = $2")).
		WithArgs(itemID, stranger).
		WillReturnRows(sqlmock.NewRows(cartCols))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3")).
		WithArgs(5, itemID, stranger).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE id = $1 AND user_id = $2")).
		WithArgs(itemID, stranger).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE id = $1 AND user_id = $2")).
		WithArgs(itemID, owner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = repo.GetItem(ctx, stranger, itemID)
	assert.ErrorIs(t, err, storage.ErrCartItemNotFound)
	assert.ErrorIs(t, repo.UpdateItemQuantity(ctx, stranger, itemID, 5), storage.ErrCartItemNotFound)
	assert.ErrorIs(t, repo.DeleteItem(ctx, stranger, itemID), storage.ErrCartItemNotFound)
	assert.NoError(t, repo.DeleteItem(ctx, owner, itemID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.ClearByUserID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
}

func TestLockCheckoutLinesTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.id FOR UPDATE OF p")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price", "stock_quantity"}).
			AddRow(int64(1), "Headphones", 2, "100.00", 5).
			AddRow(int64(4), "Cable", 1, "9.99", 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	lines, err := repo.LockCheckoutLinesTx(context.Background(), tx, 7)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "100", lines[0].UnitPrice.String())
	assert.Equal(t, 0, lines[1].StockAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
