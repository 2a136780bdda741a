package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/lib/metrics"
	"github.com/linemk/storefront/internal/lib/tracing"
	"github.com/linemk/storefront/internal/storage"
)

const defaultOrderNumberAttempts = 5

// CheckoutService превращает корзину пользователя в заказ
type CheckoutService interface {
	CreateOrder(ctx context.Context, userID int64, input CreateOrderInput) (*OrderSummary, error)
}

// CreateOrderInput — данные доставки и оплаты, userID берётся только из токена
type CreateOrderInput struct {
	ShippingAddress    string
	ShippingCity       string
	ShippingPostalCode string
	PaymentMethod      string
}

// OrderSummary результат успешного оформления
type OrderSummary struct {
	OrderID       int64
	OrderNumber   string
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalPrice    decimal.Decimal
	Status        string
	PaymentMethod string
	PaymentStatus string
	ItemsCount    int
	Shipping      models.Shipping
	CreatedAt     time.Time
}

// CheckoutOptions настройки генерации номера заказа
type CheckoutOptions struct {
	NextOrderNumber     OrderNumberGenerator
	OrderNumberAttempts int
}

type checkoutService struct {
	log            *slog.Logger
	db             *sql.DB
	cartRepo       storage.CartStorage
	productRepo    storage.ProductStorage
	orderRepo      storage.OrderStorage
	nextNumber     OrderNumberGenerator
	numberAttempts int
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	opts CheckoutOptions,
) CheckoutService {
	if opts.NextOrderNumber == nil {
		opts.NextOrderNumber = NewOrderNumberGenerator("ORD", nil)
	}
	if opts.OrderNumberAttempts <= 0 {
		opts.OrderNumberAttempts = defaultOrderNumberAttempts
	}
	return &checkoutService{
		log:            log,
		db:             db,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		orderRepo:      orderRepo,
		nextNumber:     opts.NextOrderNumber,
		numberAttempts: opts.OrderNumberAttempts,
	}
}

// CreateOrder оформляет заказ из корзины одной транзакцией:
// блокировка товаров, проверка остатков, заказ и его строки, списание остатков, очистка корзины.
// Любая ошибка после BEGIN откатывает всё целиком.
func (s *checkoutService) CreateOrder(ctx context.Context, userID int64, input CreateOrderInput) (*OrderSummary, error) {
	const op = "service.CheckoutService.CreateOrder"
	ctx, span := tracing.StartSpan(ctx, "CheckoutService.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout")

	summary, err := s.createOrder(ctx, logger, userID, input)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(checkoutResult(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.CheckoutsTotal.WithLabelValues(metrics.CheckoutSuccess).Inc()
	metrics.OrderTotalAmount.Observe(summary.TotalPrice.InexactFloat64())
	span.SetAttributes(attribute.Int64("order.id", summary.OrderID), attribute.String("order.number", summary.OrderNumber))
	return summary, nil
}

func (s *checkoutService) createOrder(ctx context.Context, logger *slog.Logger, userID int64, input CreateOrderInput) (*OrderSummary, error) {
	// валидация до любых обращений к БД
	input, err := normalizeCreateOrderInput(input)
	if err != nil {
		logger.Warn("invalid checkout input", slog.Any("error", err))
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	// корзина с актуальными ценами, строки товаров заблокированы до конца транзакции
	lines, err := s.cartRepo.LockCheckoutLinesTx(ctx, tx, userID)
	if err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		s.rollback(tx, logger)
		logger.Warn("cart is empty")
		return nil, ErrEmptyCart
	}

	if violations := checkStock(lines); len(violations) > 0 {
		s.rollback(tx, logger)
		logger.Warn("insufficient stock", slog.Int("violations", len(violations)))
		return nil, &InsufficientStockError{Violations: violations}
	}

	totals := CalculateTotals(lines)
	order := &models.Order{
		UserID:        userID,
		Subtotal:      Money(totals.Subtotal),
		TaxAmount:     Money(totals.Tax),
		TotalPrice:    Money(totals.Total),
		Status:        models.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		Shipping: models.Shipping{
			Address:    input.ShippingAddress,
			City:       input.ShippingCity,
			PostalCode: input.ShippingPostalCode,
		},
		ItemsCount: totals.Items,
	}

	if err := s.insertOrder(ctx, tx, logger, order); err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, err
	}

	// цена берётся из снимка, прочитанного под блокировкой, повторно не запрашивается
	for _, line := range lines {
		item := &models.OrderItem{
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to create order item", slog.Int64("productID", line.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	for _, line := range lines {
		if err := s.productRepo.DecrementStockTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
			s.rollback(tx, logger)
			if errors.Is(err, storage.ErrStockConflict) {
				// при блокировке строк недостижимо, остаток в минус не уходит
				logger.Error("stock conflict on decrement",
					slog.Int64("productID", line.ProductID), slog.Int("quantity", line.Quantity))
			} else {
				logger.Error("failed to decrement stock", slog.Int64("productID", line.ProductID), slog.Any("error", err))
			}
			return nil, fmt.Errorf("failed to decrement stock for product %d: %w", line.ProductID, err)
		}
	}

	if err := s.cartRepo.ClearByUserIDTx(ctx, tx, userID); err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("order created",
		slog.Int64("orderID", order.ID),
		slog.String("orderNumber", order.OrderNumber),
		slog.String("total", order.TotalPrice.StringFixed(2)),
	)

	return &OrderSummary{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Subtotal:      order.Subtotal,
		TaxAmount:     order.TaxAmount,
		TotalPrice:    order.TotalPrice,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		ItemsCount:    order.ItemsCount,
		Shipping:      order.Shipping,
		CreatedAt:     order.CreatedAt,
	}, nil
}

// insertOrder подбирает свободный номер заказа, число попыток ограничено
func (s *checkoutService) insertOrder(ctx context.Context, tx *sql.Tx, logger *slog.Logger, order *models.Order) error {
	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		order.OrderNumber = s.nextNumber()
		inserted, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if inserted {
			return nil
		}
		logger.Warn("order number collision, regenerating",
			slog.String("orderNumber", order.OrderNumber), slog.Int("attempt", attempt))
	}
	return fmt.Errorf("no free order number after %d attempts: %w", s.numberAttempts, ErrConflict)
}

func (s *checkoutService) rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}

func checkStock(lines []*models.CheckoutLine) []StockViolation {
	var violations []StockViolation
	for _, line := range lines {
		if line.Quantity > line.StockAvailable {
			violations = append(violations, StockViolation{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   line.StockAvailable,
			})
		}
	}
	return violations
}

func normalizeCreateOrderInput(input CreateOrderInput) (CreateOrderInput, error) {
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	input.ShippingCity = strings.TrimSpace(input.ShippingCity)
	input.ShippingPostalCode = strings.TrimSpace(input.ShippingPostalCode)
	input.PaymentMethod = strings.TrimSpace(input.PaymentMethod)

	switch {
	case input.ShippingAddress == "":
		return input, invalidField("shipping_address", "is required")
	case input.ShippingCity == "":
		return input, invalidField("shipping_city", "is required")
	case input.ShippingPostalCode == "":
		return input, invalidField("shipping_postal_code", "is required")
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = models.PaymentCashOnDelivery
	}
	if !models.IsValidPaymentMethod(input.PaymentMethod) {
		return input, invalidField("payment_method", "must be one of cash_on_delivery, bank_transfer, card")
	}
	return input, nil
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return metrics.CheckoutValidation
	case errors.Is(err, ErrEmptyCart):
		return metrics.CheckoutEmptyCart
	case errors.Is(err, ErrInsufficientStock):
		return metrics.CheckoutInsufficientStock
	case errors.Is(err, ErrConflict), errors.Is(err, storage.ErrStockConflict):
		return metrics.CheckoutConflict
	default:
		return metrics.CheckoutError
	}
}
