package service

import (
	"context"
	"time"

	"storefront/internal/models"
)

// Tx groups the storage operations available inside one atomic unit of work.
// Implementations must serialize concurrent access at the product-row level:
// two checkouts racing on the same product must observe each other's
// decrements.
type Tx interface {
	CartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	ClearCart(ctx context.Context, userID int64) error

	// ProductForUpdate reads a product and holds a write lock on its row
	// until the transaction ends.
	ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	// DecrementStock subtracts qty from a product's stock. It fails without
	// side effect if the decrement would drive stock negative.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	IncrementStock(ctx context.Context, productID int64, qty int) error

	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLines(ctx context.Context, lines []models.OrderLine) error

	OrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	OrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
}

// UnitOfWork runs fn inside a transaction. If fn returns an error or panics,
// every write made through the Tx is rolled back; otherwise the transaction
// commits when fn returns.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// CartStore is the cart port consumed by the cart service.
type CartStore interface {
	CartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	AddCartLine(ctx context.Context, userID, productID int64, qty int) error
	UpdateCartLineQuantity(ctx context.Context, userID, productID int64, qty int) error
	RemoveCartLine(ctx context.Context, userID, productID int64) error
}

// ProductCatalog is the read-only product port.
type ProductCatalog interface {
	Products(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, productID int64) (*models.Product, error)
}

// OrderReader serves order reads outside the checkout transaction.
type OrderReader interface {
	OrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	OrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
}

// ReportStore aggregates revenue for the report worker.
type ReportStore interface {
	RevenueSummary(ctx context.Context, from, to time.Time) (*models.RevenueSummary, error)
}

// NotificationStore records notifications and consumer idempotency marks.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Publisher emits domain events after state changes commit.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishRevenueReport(ctx context.Context, event *models.RevenueReportEvent) error
}
