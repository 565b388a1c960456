package models

import "time"

// Product represents a product in the catalog. Prices are stored in cents.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Price         int64     `db:"price" json:"price"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CartLine is one product entry in a user's cart. A cart holds at most one
// line per product; adding the same product again increases the quantity.
// The unit price is not stored here: it is re-read from the catalog at
// checkout time.
type CartLine struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CustomerInfo is the shipping contact captured on the checkout form.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Country   string `json:"country"`
}

// Order is the committed record of a purchase. Everything except Status is
// frozen at checkout time; later catalog edits never touch a placed order.
type Order struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Phone          string    `db:"phone" json:"phone"`
	Address        string    `db:"address" json:"address"`
	Country        string    `db:"country" json:"country"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Tax            int64     `db:"tax" json:"tax"`
	ShippingFee    int64     `db:"shipping_fee" json:"shipping_fee"`
	Status         string    `db:"status" json:"status"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderLine is a frozen snapshot of one cart line inside an order. Name and
// price are copied from the product at placement time.
type OrderLine struct {
	ID           int64  `db:"id" json:"id"`
	OrderID      int64  `db:"order_id" json:"order_id"`
	ProductID    int64  `db:"product_id" json:"product_id"`
	Quantity     int    `db:"quantity" json:"quantity"`
	ProductName  string `db:"product_name" json:"product_name"`
	ProductPrice int64  `db:"product_price" json:"product_price"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
)

// Payment methods
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// Notification is a delivery-agnostic record of a message owed to a user.
// Actual delivery (email etc.) is handled outside this service.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Kind      string    `db:"kind" json:"kind"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RevenueSummary is an aggregate over non-canceled orders in a time window.
type RevenueSummary struct {
	From        time.Time `db:"-" json:"from"`
	To          time.Time `db:"-" json:"to"`
	OrderCount  int       `db:"order_count" json:"order_count"`
	GrossAmount int64     `db:"gross_amount" json:"gross_amount"`
	TaxAmount   int64     `db:"tax_amount" json:"tax_amount"`
	ShippingFee int64     `db:"shipping_fee" json:"shipping_fee"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
