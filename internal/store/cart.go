package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// CartLines retrieves the cart contents for a user
func (s *Store) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE user_id = $1", userID)
	return lines, err
}

// AddCartLine upserts a cart line. The (user_id, product_id) pair is unique
// per cart, so adding an existing product increments its quantity.
func (s *Store) AddCartLine(ctx context.Context, userID, productID int64, qty int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		userID, productID, qty)
	return err
}

// UpdateCartLineQuantity replaces the quantity of an existing line
func (s *Store) UpdateCartLineQuantity(ctx context.Context, userID, productID int64, qty int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1, updated_at = NOW() WHERE user_id = $2 AND product_id = $3",
		qty, userID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("cart line not found for product %d", productID)
	}
	return nil
}

// RemoveCartLine drops a product from the cart
func (s *Store) RemoveCartLine(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	return err
}
