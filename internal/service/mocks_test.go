package service_test

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/service"
)

// fakePublisher captures published events in memory.
type fakePublisher struct {
	mu             sync.Mutex
	placed         []*models.OrderPlacedEvent
	statusChanged  []*models.OrderStatusChangedEvent
	revenueReports []*models.RevenueReportEvent
}

var _ service.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, event)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusChanged = append(f.statusChanged, event)
	return nil
}

func (f *fakePublisher) PublishRevenueReport(ctx context.Context, event *models.RevenueReportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revenueReports = append(f.revenueReports, event)
	return nil
}

func (f *fakePublisher) placedEvents() []*models.OrderPlacedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.OrderPlacedEvent(nil), f.placed...)
}
