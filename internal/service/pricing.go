package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/storefront/internal/domain/models"
)

// TaxRate — фиксированная ставка налога 19%
var TaxRate = decimal.RequireFromString("0.19")

// Totals — суммы заказа. Внутри хранятся с полной точностью,
// до копеек округляются только при сохранении и выдаче клиенту.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Items    int
}

// CalculateTotals считает subtotal = Σ цена×количество, tax = subtotal×0.19, total = subtotal+tax
func CalculateTotals(lines []*models.CheckoutLine) Totals {
	subtotal := decimal.Zero
	items := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items += line.Quantity
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		Items:    items,
	}
}

// Money округляет сумму до копеек для сохранения и вывода
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// OrderNumberGenerator выдаёт человекочитаемый номер заказа
type OrderNumberGenerator func() string

// NewOrderNumberGenerator формирует номера вида PREFIX-YYYYMMDD-NNNN.
// Суффикс случайный, коллизии возможны и обрабатываются повтором при вставке.
func NewOrderNumberGenerator(prefix string, now func() time.Time) OrderNumberGenerator {
	if now == nil {
		now = time.Now
	}
	return func() string {
		return fmt.Sprintf("%s-%s-%04d", prefix, now().Format("20060102"), rand.Intn(10000))
	}
}
