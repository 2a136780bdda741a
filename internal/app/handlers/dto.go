package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/service"
)

// деньги отдаются строкой с двумя знаками, чтобы клиент не терял точность
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type ProductResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Stock        int       `json:"stock_quantity"`
	IsFeatured   bool      `json:"is_featured"`
	IsBestseller bool      `json:"is_bestseller"`
	IsNew        bool      `json:"is_new"`
	Brand        string    `json:"brand"`
	Rating       string    `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        money(p.Price),
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Stock:        p.Stock,
		IsFeatured:   p.IsFeatured,
		IsBestseller: p.IsBestseller,
		IsNew:        p.IsNew,
		Brand:        p.Brand,
		Rating:       p.Rating.StringFixed(1),
		CreatedAt:    p.CreatedAt,
	}
}

func toProductResponses(products []*models.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type ProductPageResponse struct {
	Products   []ProductResponse `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type CartItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
	Stock       int    `json:"stock_quantity"`
}

func toCartItemResponse(item *models.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		UnitPrice:   money(item.UnitPrice),
		Quantity:    item.Quantity,
		LineTotal:   money(item.LineTotal()),
		Stock:       item.Stock,
	}
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	ItemsCount int                `json:"items_count"`
	Subtotal   string             `json:"subtotal"`
	TaxAmount  string             `json:"tax_amount"`
	Total      string             `json:"total"`
}

func toCartResponse(cart *service.CartView) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, toCartItemResponse(item))
	}
	return CartResponse{
		Items:      items,
		ItemsCount: cart.ItemsCount,
		Subtotal:   money(cart.Subtotal),
		TaxAmount:  money(cart.TaxAmount),
		Total:      money(cart.Total),
	}
}

// OrderSummaryResponse ответ на оформление заказа
type OrderSummaryResponse struct {
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Subtotal      string          `json:"subtotal"`
	TaxAmount     string          `json:"tax_amount"`
	TotalPrice    string          `json:"total_price"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	ItemsCount    int             `json:"items_count"`
	Shipping      models.Shipping `json:"shipping"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toOrderSummaryResponse(s *service.OrderSummary) OrderSummaryResponse {
	return OrderSummaryResponse{
		OrderID:       s.OrderID,
		OrderNumber:   s.OrderNumber,
		Subtotal:      money(s.Subtotal),
		TaxAmount:     money(s.TaxAmount),
		TotalPrice:    money(s.TotalPrice),
		Status:        s.Status,
		PaymentMethod: s.PaymentMethod,
		PaymentStatus: s.PaymentStatus,
		ItemsCount:    s.ItemsCount,
		Shipping:      s.Shipping,
		CreatedAt:     s.CreatedAt,
	}
}

type OrderItemResponse struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
	LineTotal       string `json:"line_total"`
}

type OrderResponse struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Subtotal      string              `json:"subtotal"`
	TaxAmount     string              `json:"tax_amount"`
	TotalPrice    string              `json:"total_price"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	ItemsCount    int                 `json:"items_count"`
	Shipping      models.Shipping     `json:"shipping"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Subtotal:      money(o.Subtotal),
		TaxAmount:     money(o.TaxAmount),
		TotalPrice:    money(o.TotalPrice),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		ItemsCount:    o.ItemsCount,
		Shipping:      o.Shipping,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: money(item.PriceAtPurchase),
			LineTotal:       money(item.LineTotal()),
		})
	}
	return resp
}

type StatusChangeResponse struct {
	OrderID        int64  `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}
