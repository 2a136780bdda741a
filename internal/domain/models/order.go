package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// статусы заказа
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// способы оплаты
const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentBankTransfer   = "bank_transfer"
	PaymentCard           = "card"
)

// статусы оплаты
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

var orderStatuses = map[string]struct{}{
	OrderStatusPending:    {},
	OrderStatusConfirmed:  {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

var paymentMethods = map[string]struct{}{
	PaymentCashOnDelivery: {},
	PaymentBankTransfer:   {},
	PaymentCard:           {},
}

// IsValidOrderStatus проверяет, что статус входит в известный набор
func IsValidOrderStatus(status string) bool {
	_, ok := orderStatuses[status]
	return ok
}

// IsValidPaymentMethod проверяет способ оплаты
func IsValidPaymentMethod(method string) bool {
	_, ok := paymentMethods[method]
	return ok
}

// Shipping снимок адреса доставки на момент оформления
type Shipping struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Order представляет заказ. После создания меняются только Status и PaymentStatus.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	OrderNumber   string          `json:"order_number"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Shipping      Shipping        `json:"shipping"`
	ItemsCount    int             `json:"items_count"`
	Items         []*OrderItem    `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem — строка заказа с ценой, зафиксированной в момент покупки. Не изменяется.
type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// LineTotal возвращает стоимость строки по зафиксированной цене
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
