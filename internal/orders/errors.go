package orders

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be greater than 0")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrEmptyCart              = errors.New("no items in cart")
	ErrNotFoundInCart         = errors.New("item not found in cart")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("invalid order status transition")
	ErrInvalidStatus          = errors.New("unknown order status")
	ErrInvalidAddress         = errors.New("shipping address is required")

	// ErrStoreConflict is a transient lock or serialization failure. The whole
	// call can be retried.
	ErrStoreConflict = errors.New("store conflict")

	// ErrIntegrity marks state that should never exist (missing product for an
	// order item, negative stock). It is not a business error.
	ErrIntegrity = errors.New("data integrity violation")
)

type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// IntegrityError is raised with panic when a committed order would break the
// total == Σ subtotal invariant.
type IntegrityError struct {
	OrderID int64
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("order %d: %s", e.OrderID, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

func transitionError(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrInvalidStateTransition, from)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}
