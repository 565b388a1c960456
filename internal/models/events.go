package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeRevenueReport      = "REVENUE_REPORT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published once after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	Tax         int64           `json:"tax"`
	ShippingFee int64           `json:"shipping_fee"`
	Lines       []OrderLineData `json:"lines"`
}

// OrderStatusChangedEvent published on an admin-driven status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	UserID     int64  `json:"user_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// RevenueReportEvent published by the report worker; formatting and delivery
// are left to downstream consumers
type RevenueReportEvent struct {
	BaseEvent
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	OrderCount  int       `json:"order_count"`
	GrossAmount int64     `json:"gross_amount"`
	TaxAmount   int64     `json:"tax_amount"`
	ShippingFee int64     `json:"shipping_fee"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ProductID    int64  `json:"product_id"`
	Quantity     int    `json:"quantity"`
	ProductName  string `json:"product_name"`
	ProductPrice int64  `json:"product_price"`
}
