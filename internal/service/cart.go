package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

// CartService управляет корзиной текущего пользователя.
// userID всегда берётся из токена, поэтому чужая корзина недоступна.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
}

// CartView корзина с текущими ценами и предварительными суммами
type CartView struct {
	Items      []*models.CartItem
	ItemsCount int
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	items, err := s.cartRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}

	lines := make([]*models.CheckoutLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, &models.CheckoutLine{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			StockAvailable: item.Stock,
		})
	}
	totals := CalculateTotals(lines)

	return &CartView{
		Items:      items,
		ItemsCount: totals.Items,
		Subtotal:   Money(totals.Subtotal),
		TaxAmount:  Money(totals.Tax),
		Total:      Money(totals.Total),
	}, nil
}

// AddItem добавляет товар в корзину или увеличивает количество.
// Итоговое количество не может превышать текущий остаток.
func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, invalidField("quantity", "must be at least 1"))
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			logger.Warn("product not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	inCart := 0
	existing, err := s.cartRepo.GetItemByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		inCart = existing.Quantity
	case errors.Is(err, storage.ErrCartItemNotFound):
	default:
		logger.Error("failed to get cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart item: %w", op, err)
	}

	if inCart+quantity > product.Stock {
		logger.Warn("quantity exceeds stock", slog.Int("requested", inCart+quantity), slog.Int("stock", product.Stock))
		return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{Violations: []StockViolation{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   inCart + quantity,
			Available:   product.Stock,
		}}})
	}

	itemID, err := s.cartRepo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add cart item: %w", op, err)
	}

	item, err := s.cartRepo.GetItem(ctx, userID, itemID)
	if err != nil {
		logger.Error("failed to reload cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to reload cart item: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int64("itemID", itemID), slog.Int("quantity", item.Quantity))
	return item, nil
}

// UpdateItem задаёт абсолютное количество строки корзины
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	const op = "service.CartService.UpdateItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, invalidField("quantity", "must be at least 1"))
	}

	item, err := s.cartRepo.GetItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			logger.Warn("cart item not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to get cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart item: %w", op, err)
	}

	if quantity > item.Stock {
		logger.Warn("quantity exceeds stock", slog.Int("requested", quantity), slog.Int("stock", item.Stock))
		return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{Violations: []StockViolation{{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Requested:   quantity,
			Available:   item.Stock,
		}}})
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to update cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update cart item: %w", op, err)
	}

	item.Quantity = quantity
	logger.Info("cart item updated", slog.Int("quantity", quantity))
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			logger.Warn("cart item not found")
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to delete cart item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete cart item: %w", op, err)
	}

	logger.Info("cart item removed")
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	removed, err := s.cartRepo.ClearByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	logger.Info("cart cleared", slog.Int64("removed", removed))
	return nil
}
