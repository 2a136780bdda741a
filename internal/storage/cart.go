package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/storefront/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage описывает методы для работы с корзиной.
// Каждый запрос ограничен владельцем (user_id), чужие строки недоступны.
type CartStorage interface {
	// GetItemsByUserID возвращает строки корзины вместе с актуальной ценой и остатком товара.
	GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	GetItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error)
	GetItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	// AddItem добавляет товар или увеличивает количество существующей строки.
	AddItem(ctx context.Context, userID, productID int64, quantity int) (int64, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID int64) error
	ClearByUserID(ctx context.Context, userID int64) (int64, error)
	// LockCheckoutLinesTx читает корзину и блокирует строки товаров до конца транзакции.
	LockCheckoutLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CheckoutLine, error)
	ClearByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartItemSelect = `
	SELECT ci.id, ci.user_id, ci.product_id, p.name, p.price, p.stock_quantity, ci.quantity, ci.created_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartItem(scan func(dest ...interface{}) error) (*models.CartItem, error) {
	item := &models.CartItem{}
	if err := scan(&item.ID, &item.UserID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Stock, &item.Quantity, &item.CreatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartItemSelect+" WHERE ci.user_id = $1 ORDER BY ci.created_at, ci.id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []*models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) GetItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	row := r.db.QueryRowContext(ctx, cartItemSelect+" WHERE ci.id = $1 AND ci.user_id = $2", itemID, userID)
	item, err := scanCartItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) GetItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	row := r.db.QueryRowContext(ctx, cartItemSelect+" WHERE ci.user_id = $1 AND ci.product_id = $2", userID, productID)
	item, err := scanCartItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING id`,
		userID, productID, quantity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add cart item: %w", err)
	}
	return id, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3",
		quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) ClearByUserID(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}

func (r *cartRepository) LockCheckoutLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CheckoutLine, error) {
	// товары блокируются в порядке id, чтобы параллельные оформления не ловили дедлок
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, p.name, ci.quantity, p.price, p.stock_quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock checkout lines: %w", err)
	}
	defer rows.Close()

	var lines []*models.CheckoutLine
	for rows.Next() {
		line := &models.CheckoutLine{}
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice, &line.StockAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan checkout line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) ClearByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
