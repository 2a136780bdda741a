package service_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
)

const (
	stepLock = iota
	stepInsertOrder
	stepInsertItem
	stepDecrement
	stepClearCart
	stepCommit
	stepNone
)

// expectCheckout регистрирует запросы оформления по порядку и обрывает их на шаге failAt
func expectCheckout(mock sqlmock.Sqlmock, failAt int, failure error) {
	mock.ExpectBegin()

	lock := mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF p")).WithArgs(buyerID)
	if failAt == stepLock {
		lock.WillReturnError(failure)
		mock.ExpectRollback()
		return
	}
	lock.WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price", "stock_quantity"}).
		AddRow(int64(1), "Product A", 2, "100.00", 5))

	insertOrder := mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders"))
	if failAt == stepInsertOrder {
		insertOrder.WillReturnError(failure)
		mock.ExpectRollback()
		return
	}
	now := time.Now()
	insertOrder.WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))

	insertItem := mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(10), int64(1), 2, "100")
	if failAt == stepInsertItem {
		insertItem.WillReturnError(failure)
		mock.ExpectRollback()
		return
	}
	insertItem.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))

	decrement := mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity = stock_quantity - $1")).
		WithArgs(2, int64(1))
	if failAt == stepDecrement {
		if failure == nil {
			decrement.WillReturnResult(sqlmock.NewResult(0, 0))
		} else {
			decrement.WillReturnError(failure)
		}
		mock.ExpectRollback()
		return
	}
	decrement.WillReturnResult(sqlmock.NewResult(0, 1))

	clearCart := mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).WithArgs(buyerID)
	if failAt == stepClearCart {
		clearCart.WillReturnError(failure)
		mock.ExpectRollback()
		return
	}
	clearCart.WillReturnResult(sqlmock.NewResult(0, 1))

	commit := mock.ExpectCommit()
	if failAt == stepCommit {
		commit.WillReturnError(failure)
	}
}

func TestCheckoutService_CreateOrder_AtomicWithRepositories(t *testing.T) {
	dbDown := errors.New("connection reset")

	tests := []struct {
		name    string
		failAt  int
		failure error
		wantErr error
	}{
		{name: "success", failAt: stepNone},
		{name: "lock cart lines fails", failAt: stepLock, failure: dbDown, wantErr: dbDown},
		{name: "insert order fails", failAt: stepInsertOrder, failure: dbDown, wantErr: dbDown},
		{name: "insert order item fails", failAt: stepInsertItem, failure: dbDown, wantErr: dbDown},
		{name: "stock decrement fails", failAt: stepDecrement, failure: dbDown, wantErr: dbDown},
		{name: "stock decrement hits no row", failAt: stepDecrement, wantErr: storage.ErrStockConflict},
		{name: "clear cart fails", failAt: stepClearCart, failure: dbDown, wantErr: dbDown},
		{name: "commit fails", failAt: stepCommit, failure: dbDown, wantErr: dbDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			expectCheckout(mock, tt.failAt, tt.failure)

			svc := service.NewCheckoutService(discardLogger(), db,
				storage.NewCartRepository(db),
				storage.NewProductRepository(db),
				storage.NewOrderRepository(db),
				service.CheckoutOptions{NextOrderNumber: sequence("ORD-20240101-0042")},
			)

			summary, err := svc.CreateOrder(context.Background(), buyerID, validInput)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, int64(10), summary.OrderID)
				assert.Equal(t, "238.00", summary.TotalPrice.StringFixed(2))
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, summary)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCheckoutService_CreateOrder_OrderNumberConflictUsesOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF p")).WithArgs(buyerID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price", "stock_quantity"}).
			AddRow(int64(1), "Product A", 1, "100.00", 5))

	// занятый номер: ON CONFLICT DO NOTHING не вернул строку, транзакция жива
	orderArgs := func(number string) []driver.Value {
		return []driver.Value{buyerID, number, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"pending", "card", "pending", "Main St 1", "Berlin", "10115"}
	}
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (order_number) DO NOTHING")).
		WithArgs(orderArgs("ORD-20240101-0001")...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (order_number) DO NOTHING")).
		WithArgs(orderArgs("ORD-20240101-0002")...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := service.NewCheckoutService(discardLogger(), db,
		storage.NewCartRepository(db),
		storage.NewProductRepository(db),
		storage.NewOrderRepository(db),
		service.CheckoutOptions{NextOrderNumber: sequence("ORD-20240101-0001", "ORD-20240101-0002")},
	)

	summary, err := svc.CreateOrder(context.Background(), buyerID, validInput)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240101-0002", summary.OrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
