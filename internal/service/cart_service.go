package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService manages the per-user pre-order line list. Carts are created
// lazily: the first AddItem for a user brings the cart into existence.
type CartService struct {
	carts    CartStore
	products ProductCatalog
	logger   *zap.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts CartStore, products ProductCatalog) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   util.GetLogger(),
	}
}

// Lines returns the current cart contents for a user.
func (s *CartService) Lines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return s.carts.CartLines(ctx, userID)
}

// AddItem puts qty units of a product into the user's cart. Adding a product
// already present increments its quantity instead of duplicating the line.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, qty int) error {
	if qty < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	if _, err := s.products.ProductByID(ctx, productID); err != nil {
		return fmt.Errorf("product lookup: %w", err)
	}

	if err := s.carts.AddCartLine(ctx, userID, productID, qty); err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}

	s.logger.Debug("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", qty))
	return nil
}

// UpdateItemQuantity replaces the quantity of an existing cart line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return s.carts.UpdateCartLineQuantity(ctx, userID, productID, qty)
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	return s.carts.RemoveCartLine(ctx, userID, productID)
}
