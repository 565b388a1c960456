package worker

import (
	"context"
	"time"

	"storefront/internal/broker"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes order events and records notifications.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(notifications.HandleOrderPlaced)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	util.GetLogger().Info("Stopping notification worker")
	return w.consumer.Close()
}

// ReportWorker periodically publishes a revenue report covering the interval
// since the previous tick.
type ReportWorker struct {
	reports  *service.ReportService
	interval time.Duration
	logger   *zap.Logger
}

// NewReportWorker creates a new report worker
func NewReportWorker(reports *service.ReportService, interval time.Duration) *ReportWorker {
	return &ReportWorker{
		reports:  reports,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the report loop until the context is canceled.
func (w *ReportWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting report worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Report worker context canceled, stopping")
			return ctx.Err()
		case now := <-ticker.C:
			from := now.Add(-w.interval)
			if err := w.reports.PublishRevenueReport(ctx, from, now); err != nil {
				w.logger.Error("Failed to publish revenue report", zap.Error(err))
			}
		}
	}
}
