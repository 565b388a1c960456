package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogCache invalidates cached product reads after stock changes.
type CatalogCache interface {
	InvalidateProducts(ctx context.Context, productIDs []int64) error
}

// CheckoutService converts a cart into an order inside a single atomic unit
// of work.
type CheckoutService struct {
	uow       UnitOfWork
	orders    OrderReader
	publisher Publisher
	cache     CatalogCache
	calc      *pricing.Calculator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service. cache may be nil when no
// catalog cache is configured.
func NewCheckoutService(
	uow UnitOfWork,
	orders OrderReader,
	publisher Publisher,
	cache CatalogCache,
	calc *pricing.Calculator,
	timeout time.Duration,
) *CheckoutService {
	return &CheckoutService{
		uow:       uow,
		orders:    orders,
		publisher: publisher,
		cache:     cache,
		calc:      calc,
		timeout:   timeout,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest represents a checkout form submission.
type CheckoutRequest struct {
	UserID         int64               `json:"user_id" binding:"required"`
	Customer       models.CustomerInfo `json:"customer" binding:"required"`
	PaymentMethod  string              `json:"payment_method" binding:"required"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
}

// CheckoutResult is the committed outcome of a checkout.
type CheckoutResult struct {
	Order *models.Order      `json:"order"`
	Lines []models.OrderLine `json:"lines"`
	Quote pricing.Quote      `json:"quote"`
}

// PlaceOrder runs the checkout transaction: load the cart, re-read
// authoritative prices, reserve stock, price, assemble and persist the order,
// and clear the cart. Either every write commits or none do. A duplicate
// idempotency key returns the previously committed order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.orders.OrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, &PersistenceError{Op: "idempotency check", Err: err}
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		lines, err := s.orders.OrderLinesByOrderID(ctx, existing.ID)
		if err != nil {
			return nil, &PersistenceError{Op: "load existing order", Err: err}
		}
		return &CheckoutResult{
			Order: existing,
			Lines: lines,
			Quote: quoteFromOrder(existing),
		}, nil
	}

	var result CheckoutResult
	err = s.uow.InTx(ctx, func(tx Tx) error {
		order, lines, quote, err := s.checkout(ctx, tx, req)
		if err != nil {
			return err
		}
		result = CheckoutResult{Order: order, Lines: lines, Quote: quote}
		return nil
	})
	if err != nil {
		reason := failureReason(err)
		util.CheckoutsFailedTotal.WithLabelValues(reason).Inc()
		if reason == "storage_error" {
			s.logger.Error("Checkout failed", zap.Int64("user_id", req.UserID), zap.Error(err))
			return nil, &PersistenceError{Op: "checkout", Err: err}
		}
		return nil, err
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("user_id", req.UserID),
		zap.Int64("total_amount", result.Order.TotalAmount))

	s.afterCommit(ctx, &result)
	return &result, nil
}

// checkout runs steps 1-6 inside the transaction. Any returned error rolls
// back every write made so far.
func (s *CheckoutService) checkout(ctx context.Context, tx Tx, req *CheckoutRequest) (*models.Order, []models.OrderLine, pricing.Quote, error) {
	cartLines, err := tx.CartLines(ctx, req.UserID)
	if err != nil {
		return nil, nil, pricing.Quote{}, fmt.Errorf("load cart: %w", err)
	}
	if len(cartLines) == 0 {
		return nil, nil, pricing.Quote{}, ErrEmptyCart
	}

	// Lock product rows in a stable order so two concurrent checkouts over
	// overlapping products cannot deadlock.
	sort.Slice(cartLines, func(i, j int) bool {
		return cartLines[i].ProductID < cartLines[j].ProductID
	})

	snapshots := make([]snapshotLine, 0, len(cartLines))
	priceLines := make([]pricing.Line, 0, len(cartLines))
	for _, cl := range cartLines {
		product, err := tx.ProductForUpdate(ctx, cl.ProductID)
		if err != nil {
			return nil, nil, pricing.Quote{}, fmt.Errorf("lock product %d: %w", cl.ProductID, err)
		}

		if product.StockQuantity < cl.Quantity {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			return nil, nil, pricing.Quote{}, &InsufficientStockError{
				ProductID: product.ID,
				Requested: cl.Quantity,
				Available: product.StockQuantity,
			}
		}

		if err := tx.DecrementStock(ctx, product.ID, cl.Quantity); err != nil {
			return nil, nil, pricing.Quote{}, fmt.Errorf("reserve stock for product %d: %w", product.ID, err)
		}

		snapshots = append(snapshots, snapshotLine{Product: product, Quantity: cl.Quantity})
		priceLines = append(priceLines, pricing.Line{UnitPrice: product.Price, Quantity: cl.Quantity})
	}

	quote := s.calc.Compute(priceLines, req.Customer.Country)

	order, orderLines, err := assembleOrder(req.UserID, snapshots, req.Customer, quote, req.PaymentMethod)
	if err != nil {
		return nil, nil, pricing.Quote{}, err
	}
	order.IdempotencyKey = req.IdempotencyKey

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, nil, pricing.Quote{}, fmt.Errorf("insert order: %w", err)
	}
	for i := range orderLines {
		orderLines[i].OrderID = order.ID
	}
	if err := tx.InsertOrderLines(ctx, orderLines); err != nil {
		return nil, nil, pricing.Quote{}, fmt.Errorf("insert order lines: %w", err)
	}

	if err := tx.ClearCart(ctx, req.UserID); err != nil {
		return nil, nil, pricing.Quote{}, fmt.Errorf("clear cart: %w", err)
	}

	return order, orderLines, quote, nil
}

// afterCommit performs best-effort side effects that must not undo the
// committed order: event publication and cache invalidation.
func (s *CheckoutService) afterCommit(ctx context.Context, result *CheckoutResult) {
	lineData := make([]models.OrderLineData, 0, len(result.Lines))
	productIDs := make([]int64, 0, len(result.Lines))
	for _, l := range result.Lines {
		lineData = append(lineData, models.OrderLineData{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			ProductName:  l.ProductName,
			ProductPrice: l.ProductPrice,
		})
		productIDs = append(productIDs, l.ProductID)
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     result.Order.ID,
		UserID:      result.Order.UserID,
		TotalAmount: result.Order.TotalAmount,
		Tax:         result.Order.Tax,
		ShippingFee: result.Order.ShippingFee,
		Lines:       lineData,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProducts(ctx, productIDs); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}
}

// failureReason buckets checkout errors for metrics.
func failureReason(err error) string {
	var stockErr *InsufficientStockError
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &validationErr):
		return "invalid_input"
	default:
		return "storage_error"
	}
}

func quoteFromOrder(order *models.Order) pricing.Quote {
	return pricing.Quote{
		Subtotal:    order.TotalAmount - order.Tax - order.ShippingFee,
		Tax:         order.Tax,
		ShippingFee: order.ShippingFee,
		Total:       order.TotalAmount,
	}
}
