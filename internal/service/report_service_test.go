package service_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRevenueReport(t *testing.T) {
	ctx := context.Background()
	mem, publisher, checkoutSvc := newCheckoutFixture()
	orderSvc := service.NewOrderService(mem, mem, publisher)
	reportSvc := service.NewReportService(mem, publisher, nil)

	productID := seedProduct(t, mem, "Widget", 1000, 20)

	kept := placeTestOrder(t, mem, checkoutSvc, 1, productID, 3)
	canceled := placeTestOrder(t, mem, checkoutSvc, 2, productID, 2)
	_, err := orderSvc.UpdateStatus(ctx, canceled.ID, models.OrderStatusCanceled)
	require.NoError(t, err)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	require.NoError(t, reportSvc.PublishRevenueReport(ctx, from, to))

	require.Len(t, publisher.revenueReports, 1)
	report := publisher.revenueReports[0]

	// canceled orders are excluded from the aggregate
	assert.Equal(t, 1, report.OrderCount)
	assert.Equal(t, kept.TotalAmount, report.GrossAmount)
	assert.Equal(t, kept.Tax, report.TaxAmount)
	assert.Equal(t, kept.ShippingFee, report.ShippingFee)
}
