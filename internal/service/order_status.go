package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/lib/metrics"
	"github.com/linemk/storefront/internal/lib/tracing"
	"github.com/linemk/storefront/internal/storage"
)

// OrderStatusService меняет статус заказа, доступен только администратору.
// Переходы не ограничены: любой известный статус можно выставить из любого другого.
type OrderStatusService interface {
	UpdateOrderStatus(ctx context.Context, actor models.Actor, orderID int64, newStatus string) (*StatusChange, error)
}

// StatusChange результат смены статуса
type StatusChange struct {
	OrderID        int64
	OrderNumber    string
	PreviousStatus string
	NewStatus      string
}

type orderStatusService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
}

func NewOrderStatusService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage) OrderStatusService {
	return &orderStatusService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
	}
}

// UpdateOrderStatus проверяет роль, статус и существование заказа, затем меняет только status.
// Строка заказа блокируется, чтобы два администратора не прочитали одинаковый previous_status.
func (s *orderStatusService) UpdateOrderStatus(ctx context.Context, actor models.Actor, orderID int64, newStatus string) (*StatusChange, error) {
	const op = "service.OrderStatusService.UpdateOrderStatus"
	ctx, span := tracing.StartSpan(ctx, "OrderStatusService.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("order.new_status", newStatus))

	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("adminID", actor.UserID),
		slog.Int64("orderID", orderID),
		slog.String("newStatus", newStatus),
	)

	// роль проверяется до разбора остальных аргументов
	if !actor.IsAdmin() {
		logger.Warn("non-admin attempted status change", slog.String("role", actor.Role))
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if !models.IsValidOrderStatus(newStatus) {
		logger.Warn("unknown order status")
		return nil, fmt.Errorf("%s: %w", op, invalidField("status",
			"must be one of pending, confirmed, processing, shipped, delivered, cancelled"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if order.Status == newStatus {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("order already has this status")
		return nil, fmt.Errorf("%s: %w", op, ErrNoOp)
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, orderID, newStatus); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	metrics.OrderStatusChangesTotal.WithLabelValues(newStatus).Inc()
	logger.Info("order status changed",
		slog.String("audit_id", uuid.NewString()),
		slog.String("orderNumber", order.OrderNumber),
		slog.String("previousStatus", order.Status),
		slog.Time("changedAt", time.Now().UTC()),
	)

	return &StatusChange{
		OrderID:        orderID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: order.Status,
		NewStatus:      newStatus,
	}, nil
}
