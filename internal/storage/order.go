package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/storefront/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ. false означает, что номер заказа уже занят.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (bool, error)
	// CreateOrderItemTx вставляет строку заказа с зафиксированной ценой.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderByIDForUser возвращает заказ только его владельцу.
	GetOrderByIDForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Order, error)
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderSelect = `
	SELECT o.id, o.user_id, o.order_number, o.subtotal, o.tax_amount, o.total_price, o.status,
	       o.payment_method, o.payment_status, o.shipping_address, o.shipping_city, o.shipping_postal_code,
	       COALESCE((SELECT SUM(oi.quantity) FROM order_items oi WHERE oi.order_id = o.id), 0),
	       o.created_at, o.updated_at
	FROM orders o`

func scanOrder(scan func(dest ...interface{}) error) (*models.Order, error) {
	o := &models.Order{}
	err := scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Subtotal, &o.TaxAmount, &o.TotalPrice, &o.Status,
		&o.PaymentMethod, &o.PaymentStatus, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode,
		&o.ItemsCount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (bool, error) {
	// ON CONFLICT не прерывает транзакцию, в отличие от ошибки уникальности
	query := `
		INSERT INTO orders (user_id, order_number, subtotal, tax_amount, total_price, status, payment_method,
		                    payment_status, shipping_address, shipping_city, shipping_postal_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (order_number) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		order.UserID, order.OrderNumber, order.Subtotal, order.TaxAmount, order.TotalPrice, order.Status,
		order.PaymentMethod, order.PaymentStatus, order.Shipping.Address, order.Shipping.City, order.Shipping.PostalCode,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create order: %w", err)
	}
	return true, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := tx.QueryRowContext(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+" WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderByIDForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+" WHERE o.id = $1 AND o.user_id = $2", orderID, userID)
	order, err := scanOrder(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrderItems возвращает строки заказа с JOIN, чтобы получить имя товара.
func (r *orderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []*models.OrderItem{}
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LockOrderByIDTx блокирует строку заказа до конца транзакции, возвращает только поля статуса.
func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	row := tx.QueryRowContext(ctx,
		"SELECT id, user_id, order_number, status, payment_status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err := row.Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.Status, &order.PaymentStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}
