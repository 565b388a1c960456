package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportLock coordinates report publication across replicas so only one
// instance emits a report per window.
type ReportLock interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// ReportService aggregates revenue over a window and publishes the summary
// as an event. Formatting and delivery belong to downstream consumers.
type ReportService struct {
	store     ReportStore
	publisher Publisher
	lock      ReportLock
	logger    *zap.Logger
}

// NewReportService creates a new report service. lock may be nil when the
// service runs as a single instance.
func NewReportService(store ReportStore, publisher Publisher, lock ReportLock) *ReportService {
	return &ReportService{
		store:     store,
		publisher: publisher,
		lock:      lock,
		logger:    util.GetLogger(),
	}
}

// PublishRevenueReport aggregates non-canceled orders in [from, to) and
// publishes the result.
func (s *ReportService) PublishRevenueReport(ctx context.Context, from, to time.Time) error {
	ctx, span := util.StartSpan(ctx, "ReportService.PublishRevenueReport")
	defer span.End()

	if s.lock != nil {
		lockKey := fmt.Sprintf("revenue-report:%d", from.Unix())
		acquired, err := s.lock.AcquireLock(ctx, lockKey, to.Sub(from))
		if err != nil {
			return fmt.Errorf("acquire report lock: %w", err)
		}
		if !acquired {
			s.logger.Info("Revenue report already claimed by another instance",
				zap.Time("from", from))
			return nil
		}
	}

	summary, err := s.store.RevenueSummary(ctx, from, to)
	if err != nil {
		return fmt.Errorf("aggregate revenue: %w", err)
	}

	event := &models.RevenueReportEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRevenueReport,
			Timestamp: time.Now(),
		},
		From:        from,
		To:          to,
		OrderCount:  summary.OrderCount,
		GrossAmount: summary.GrossAmount,
		TaxAmount:   summary.TaxAmount,
		ShippingFee: summary.ShippingFee,
	}

	if err := s.publisher.PublishRevenueReport(ctx, event); err != nil {
		return fmt.Errorf("publish revenue report: %w", err)
	}

	util.RevenueReportsTotal.Inc()
	s.logger.Info("Revenue report published",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("order_count", summary.OrderCount),
		zap.Int64("gross_amount", summary.GrossAmount))
	return nil
}
