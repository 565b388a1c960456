package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// NotificationService turns OrderPlaced events into notification records.
// Delivery (email etc.) happens outside this service; recording is idempotent
// per event ID so redelivered messages are safe.
type NotificationService struct {
	store  NotificationStore
	logger *zap.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// HandleOrderPlaced records an order-confirmation notification for the user.
func (s *NotificationService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	notification := &models.Notification{
		UserID:  event.UserID,
		OrderID: event.OrderID,
		Kind:    "order_placed",
		Body: fmt.Sprintf("Order #%d confirmed, total %d cents across %d items",
			event.OrderID, event.TotalAmount, len(event.Lines)),
	}
	if err := s.store.InsertNotification(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	util.NotificationsRecordedTotal.Inc()
	s.logger.Info("Notification recorded",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("user_id", event.UserID))
	return nil
}
