package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/storefront/internal/lib/api/response"
	"github.com/linemk/storefront/internal/service"
)

// CreateOrderRequest тело POST /api/orders. Цены и состав берутся из корзины, не от клиента.
type CreateOrderRequest struct {
	ShippingAddress    string `json:"shipping_address" validate:"required,max=255"`
	ShippingCity       string `json:"shipping_city" validate:"required,max=100"`
	ShippingPostalCode string `json:"shipping_postal_code" validate:"required,max=20"`
	PaymentMethod      string `json:"payment_method" validate:"omitempty,oneof=cash_on_delivery bank_transfer card"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrderHandler обрабатывает POST /api/orders
func CreateOrderHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req CreateOrderRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		summary, err := checkoutService.CreateOrder(r.Context(), actor.UserID, service.CreateOrderInput{
			ShippingAddress:    req.ShippingAddress,
			ShippingCity:       req.ShippingCity,
			ShippingPostalCode: req.ShippingPostalCode,
			PaymentMethod:      req.PaymentMethod,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusCreated, "order created successfully", toOrderSummaryResponse(summary))
	}
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListOrders(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toOrderResponse(o))
		}
		response.OK(w, http.StatusOK, "orders retrieved", resp)
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		order, err := orderService.GetOrder(r.Context(), actor.UserID, orderID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "order retrieved", toOrderResponse(order))
	}
}

// UpdateOrderStatusHandler обрабатывает POST /api/orders/{id}/status.
// Маршрут закрыт RequireRole(admin), роль проверяется ещё и здесь, и в сервисе.
func UpdateOrderStatusHandler(log *slog.Logger, statusService service.OrderStatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := actorFromRequest(w, r, logger)
		if !ok {
			return
		}
		// не-админ получает 403 независимо от содержимого запроса
		if !actor.IsAdmin() {
			writeServiceError(w, logger, service.ErrForbidden)
			return
		}
		orderID, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateOrderStatusRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		change, err := statusService.UpdateOrderStatus(r.Context(), actor, orderID, req.Status)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "order status updated", StatusChangeResponse{
			OrderID:        change.OrderID,
			OrderNumber:    change.OrderNumber,
			PreviousStatus: change.PreviousStatus,
			NewStatus:      change.NewStatus,
		})
	}
}
