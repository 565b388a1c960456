package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService serves order history reads and admin-driven status
// transitions.
type OrderService struct {
	uow       UnitOfWork
	orders    OrderReader
	publisher Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(uow UnitOfWork, orders OrderReader, publisher Publisher) *OrderService {
	return &OrderService{
		uow:       uow,
		orders:    orders,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// GetOrder retrieves an order and its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.orders.OrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// OrdersForUser retrieves a user's order history.
func (s *OrderService) OrdersForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.orders.OrdersByUserID(ctx, userID)
}

// canTransition encodes the admin status flow: pending -> processing ->
// completed, with cancellation allowed until the order is completed.
func canTransition(from, to string) bool {
	switch from {
	case models.OrderStatusPending:
		return to == models.OrderStatusProcessing || to == models.OrderStatusCanceled
	case models.OrderStatusProcessing:
		return to == models.OrderStatusCompleted || to == models.OrderStatusCanceled
	default:
		return false
	}
}

// UpdateStatus applies an admin status transition. Canceling an order
// restores the stock its lines reserved, in the same transaction as the
// status change.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidOrderStatus(newStatus) {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	var updated *models.Order
	var prevStatus string
	err := s.uow.InTx(ctx, func(tx Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !canTransition(order.Status, newStatus) {
			return ErrIllegalStatusTransition
		}

		if newStatus == models.OrderStatusCanceled {
			lines, err := tx.OrderLines(ctx, orderID)
			if err != nil {
				return err
			}
			for _, l := range lines {
				if err := tx.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			return err
		}

		prevStatus = order.Status
		order.Status = newStatus
		updated = order

		s.logger.Info("Order status changed",
			zap.Int64("order_id", orderID),
			zap.String("from", prevStatus),
			zap.String("to", newStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newStatus == models.OrderStatusCanceled {
		util.OrdersCanceledTotal.Inc()
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    updated.ID,
		UserID:     updated.UserID,
		FromStatus: prevStatus,
		ToStatus:   newStatus,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return updated, nil
}
