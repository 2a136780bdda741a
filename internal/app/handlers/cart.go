package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/storefront/internal/lib/api/response"
	"github.com/linemk/storefront/internal/service"
)

type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=1000"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

// GetCartHandler обрабатывает GET /api/cart
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetCart(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "cart retrieved", toCartResponse(cart))
	}
}

// AddCartItemHandler обрабатывает POST /api/cart/items
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req AddCartItemRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		item, err := cartService.AddItem(r.Context(), actor.UserID, req.ProductID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusCreated, "item added to cart", toCartItemResponse(item))
	}
}

// UpdateCartItemHandler обрабатывает PUT /api/cart/items/{id}
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateCartItemRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		item, err := cartService.UpdateItem(r.Context(), actor.UserID, itemID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "cart item updated", toCartItemResponse(item))
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/cart/items/{id}
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		if err := cartService.RemoveItem(r.Context(), actor.UserID, itemID); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "item removed from cart", nil)
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}

		if err := cartService.Clear(r.Context(), actor.UserID); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "cart cleared", nil)
	}
}
