package service

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when a checkout is attempted on a cart with no
// lines.
var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// ErrIllegalStatusTransition is returned for an order status change outside
// the allowed transitions.
var ErrIllegalStatusTransition = errors.New("illegal order status transition")

// InsufficientStockError reports a reservation that would drive stock
// negative. Available carries the quantity the caller could still order.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested=%d, available=%d",
		e.ProductID, e.Requested, e.Available)
}

// ValidationError names the checkout form field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps an unexpected storage failure. Callers should treat
// it as retryable; the surrounding transaction has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
