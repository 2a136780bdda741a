package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem — строка корзины пользователя, уникальна по паре (user, product).
// Поля товара заполняются через JOIN с таблицей products.
type CartItem struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int             `json:"stock_quantity"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LineTotal возвращает стоимость строки по текущей цене товара
func (c *CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CheckoutLine — снимок строки корзины под блокировкой строки товара на момент оформления заказа
type CheckoutLine struct {
	ProductID      int64
	ProductName    string
	Quantity       int
	UnitPrice      decimal.Decimal
	StockAvailable int
}
