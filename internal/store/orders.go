package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/models"
)

// OrderByID retrieves an order by ID
func (s *Store) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderByIdempotencyKey retrieves an order by idempotency key. A missing key
// is not an error; it returns (nil, nil).
func (s *Store) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrdersByUserID retrieves orders for a user
func (s *Store) OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// OrderLinesByOrderID retrieves all lines for an order
func (s *Store) OrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1", orderID)
	return lines, err
}

// RevenueSummary aggregates non-canceled orders created in [from, to).
func (s *Store) RevenueSummary(ctx context.Context, from, to time.Time) (*models.RevenueSummary, error) {
	var summary models.RevenueSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COUNT(*) AS order_count,
			COALESCE(SUM(total_amount), 0) AS gross_amount,
			COALESCE(SUM(tax), 0) AS tax_amount,
			COALESCE(SUM(shipping_fee), 0) AS shipping_fee
		FROM orders
		WHERE status <> $1 AND created_at >= $2 AND created_at < $3`,
		models.OrderStatusCanceled, from, to)
	if err != nil {
		return nil, err
	}
	summary.From = from
	summary.To = to
	return &summary, nil
}

// InsertNotification creates a notification record
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, order_id, kind, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query, n.UserID, n.OrderID, n.Kind, n.Body)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
