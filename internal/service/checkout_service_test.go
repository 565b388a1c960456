package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func businessConfig() config.BusinessConfig {
	return config.BusinessConfig{
		TaxRate:             0.10,
		HomeCountry:         "US",
		ShippingFeeLowTier:  500,
		ShippingFeeMidTier:  900,
		ShippingFeeHighTier: 1500,
		LowTierMaxItems:     5,
		MidTierMaxItems:     10,
		IntlSurcharge:       1000,
		SmallOrderSurcharge: 200,
		SmallOrderThreshold: 2000,
	}
}

func newCheckoutFixture() (*store.MemStore, *fakePublisher, *service.CheckoutService) {
	mem := store.NewMemStore()
	publisher := &fakePublisher{}
	calc := pricing.NewCalculator(businessConfig())
	svc := service.NewCheckoutService(mem, mem, publisher, nil, calc, 0)
	return mem, publisher, svc
}

func validCustomer() models.CustomerInfo {
	return models.CustomerInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0100",
		Address:   "1 Main St",
		Country:   "US",
	}
}

func seedProduct(t *testing.T, mem *store.MemStore, name string, price int64, stock int) int64 {
	t.Helper()
	p := &models.Product{Name: name, Price: price, StockQuantity: stock}
	require.NoError(t, mem.CreateProduct(context.Background(), p))
	return p.ID
}

func TestPlaceOrderDomestic(t *testing.T) {
	ctx := context.Background()
	mem, publisher, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Widget", 1000, 5)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 3))

	result, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCard,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3000), result.Quote.Subtotal)
	assert.Equal(t, int64(300), result.Quote.Tax)
	assert.Equal(t, int64(500), result.Quote.ShippingFee)
	assert.Equal(t, int64(3800), result.Order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, "Widget", result.Lines[0].ProductName)
	assert.Equal(t, int64(1000), result.Lines[0].ProductPrice)
	assert.Equal(t, 3, result.Lines[0].Quantity)

	// stock reserved and cart cleared
	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockQuantity)

	lines, err := mem.CartLines(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)

	events := publisher.placedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, result.Order.ID, events[0].OrderID)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ctx := context.Background()
	mem, publisher, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Gadget", 1000, 2)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 5))

	_, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCash,
	})
	require.Error(t, err)

	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, productID, stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// nothing changed: no order, stock intact, cart intact
	orders, err := mem.OrdersByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)

	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockQuantity)

	lines, err := mem.CartLines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	assert.Empty(t, publisher.placedEvents())
}

func TestPlaceOrderInternationalHighTier(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Gizmo", 500, 20)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 12))

	customer := validCustomer()
	customer.Country = "DE"

	result, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      customer,
		PaymentMethod: models.PaymentMethodCard,
	})
	require.NoError(t, err)

	// high tier plus international surcharge, combined additively
	assert.Equal(t, int64(2500), result.Quote.ShippingFee)
	assert.Equal(t, int64(6000), result.Quote.Subtotal)
	assert.Equal(t, int64(600), result.Quote.Tax)
	assert.Equal(t, int64(9100), result.Order.TotalAmount)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newCheckoutFixture()

	_, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        42,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, service.ErrEmptyCart)
}

func TestPlaceOrderValidationRollsBack(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Widget", 1000, 5)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 3))

	customer := validCustomer()
	customer.Phone = ""

	_, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      customer,
		PaymentMethod: models.PaymentMethodCard,
	})
	require.Error(t, err)

	var validationErr *service.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "phone", validationErr.Field)

	// validation fails after stock was reserved; the rollback must undo the
	// decrement and keep the cart
	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 5, product.StockQuantity)

	lines, err := mem.CartLines(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Widget", 1000, 5)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 1))

	_, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: "bitcoin",
	})

	var validationErr *service.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "payment_method", validationErr.Field)
}

func TestPlaceOrderIdempotency(t *testing.T) {
	ctx := context.Background()
	mem, publisher, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Widget", 1000, 10)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 2))

	req := &service.CheckoutRequest{
		UserID:         1,
		Customer:       validCustomer(),
		PaymentMethod:  models.PaymentMethodCard,
		IdempotencyKey: "retry-key-1",
	}

	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	// client retries the same submission; a refilled cart must not produce a
	// second order or a second reservation
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 2))
	second, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.Order.TotalAmount, second.Order.TotalAmount)

	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 8, product.StockQuantity)

	assert.Len(t, publisher.placedEvents(), 1)
}

func TestPlaceOrderRetryAfterStockFailure(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	productID := seedProduct(t, mem, "Gadget", 1000, 2)
	require.NoError(t, mem.AddCartLine(ctx, 1, productID, 5))

	req := &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCash,
	}

	_, err := svc.PlaceOrder(ctx, req)
	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))

	// user reduces the quantity to what is available and retries
	require.NoError(t, mem.UpdateCartLineQuantity(ctx, 1, productID, stockErr.Available))

	result, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Lines[0].Quantity)

	orders, err := mem.OrdersByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockQuantity)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	const stock = 5
	const attempts = 10

	productID := seedProduct(t, mem, "Limited", 1000, stock)
	for userID := int64(1); userID <= attempts; userID++ {
		require.NoError(t, mem.AddCartLine(ctx, userID, productID, 1))
	}

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for userID := int64(1); userID <= attempts; userID++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
				UserID:         userID,
				Customer:       validCustomer(),
				PaymentMethod:  models.PaymentMethodCard,
				IdempotencyKey: fmt.Sprintf("concurrent-%d", userID),
			})
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *service.InsufficientStockError
		require.True(t, errors.As(err, &stockErr), "unexpected error: %v", err)
		failed++
	}

	// exactly the reservations that fit succeed, the rest fail
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, attempts-stock, failed)

	product, err := mem.ProductByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockQuantity)
}

func TestPlaceOrderMultiLineTotals(t *testing.T) {
	ctx := context.Background()
	mem, _, svc := newCheckoutFixture()

	widgetID := seedProduct(t, mem, "Widget", 1299, 10)
	gadgetID := seedProduct(t, mem, "Gadget", 450, 10)
	require.NoError(t, mem.AddCartLine(ctx, 1, widgetID, 2))
	require.NoError(t, mem.AddCartLine(ctx, 1, gadgetID, 4))

	result, err := svc.PlaceOrder(ctx, &service.CheckoutRequest{
		UserID:        1,
		Customer:      validCustomer(),
		PaymentMethod: models.PaymentMethodCard,
	})
	require.NoError(t, err)

	// total must equal the sum of frozen line snapshots plus tax and shipping
	var lineSum int64
	for _, l := range result.Lines {
		lineSum += l.ProductPrice * int64(l.Quantity)
	}
	assert.Equal(t, lineSum, result.Quote.Subtotal)
	assert.Equal(t, lineSum+result.Order.Tax+result.Order.ShippingFee, result.Order.TotalAmount)
}
