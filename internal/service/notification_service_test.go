package service_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleOrderPlacedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	svc := service.NewNotificationService(mem)

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     10,
		UserID:      1,
		TotalAmount: 3800,
		Lines:       []models.OrderLineData{{ProductID: 5, Quantity: 3}},
	}

	// redelivered events must not produce duplicate notifications
	require.NoError(t, svc.HandleOrderPlaced(ctx, event))
	require.NoError(t, svc.HandleOrderPlaced(ctx, event))

	notifications, err := mem.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, int64(10), notifications[0].OrderID)
	assert.Equal(t, "order_placed", notifications[0].Kind)
}
