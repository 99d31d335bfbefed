package orders

import (
	"context"
	"fmt"
)

// StateMachine applies status changes. Cancelling credits every item's
// quantity back to its product in the same unit of work as the status write.
type StateMachine struct {
	// StrictTransitions rejects moves that CanTransition does not allow. Off by
	// default: admins may set any status, only cancellation is special.
	StrictTransitions bool
}

func (m StateMachine) UpdateStatus(ctx context.Context, uow UnitOfWork, orderID int64, next Status) (Order, error) {
	o, _, err := m.changeStatus(ctx, uow, orderID, next)
	return o, err
}

// changeStatus is UpdateStatus that also hands back the status the order had
// before, read under the same lock.
func (m StateMachine) changeStatus(ctx context.Context, uow UnitOfWork, orderID int64, next Status) (Order, Status, error) {
	if !next.Valid() {
		return Order{}, "", fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}

	// row lock on the order: two concurrent cancels must not both credit stock
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return Order{}, "", err
	}
	before := o.Status
	o, err = m.apply(ctx, uow, o, next)
	return o, before, err
}

// apply writes next onto an order already locked by the caller.
func (m StateMachine) apply(ctx context.Context, uow UnitOfWork, o Order, next Status) (Order, error) {
	if next == StatusCancelled && o.Status == StatusCancelled {
		return o, nil
	}
	if m.StrictTransitions && o.Status != next && !CanTransition(o.Status, next) {
		return Order{}, transitionError(o.Status, next)
	}

	if next == StatusCancelled {
		for _, it := range o.Items {
			if err := uow.Catalog().IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return Order{}, fmt.Errorf("restore stock for product %d: %w", it.ProductID, err)
			}
		}
	}

	if err := uow.Orders().UpdateStatus(ctx, o.ID, next); err != nil {
		return Order{}, fmt.Errorf("update status: %w", err)
	}
	o.Status = next
	return o, nil
}

// UserCancel lets the owner cancel an order that is still pending.
func (m StateMachine) UserCancel(ctx context.Context, uow UnitOfWork, orderID, userID int64) (Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrOrderNotFound
	}
	if o.Status != StatusPending {
		return Order{}, fmt.Errorf("%w: can only cancel pending orders", ErrInvalidStateTransition)
	}
	return m.apply(ctx, uow, o, StatusCancelled)
}
