package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service is the entry point used by adapters: each call is one unit of work,
// events go out only after commit.
type Service struct {
	Store     Beginner
	Checkout  Checkout
	States    StateMachine
	Publisher EventPublisher
	Logger    *slog.Logger
	Metrics   Observer
	Name      string // producer name on emitted events
}

// Observer receives per-operation outcomes, e.g. for prometheus counters.
type Observer interface {
	Observe(op string, err error, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) Observe(string, error, time.Duration) {}

func NewService(store Beginner, opts ...Option) *Service {
	s := &Service{
		Store:     store,
		Publisher: nopPublisher{},
		Logger:    slog.Default(),
		Metrics:   nopObserver{},
		Name:      "checkout-api",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.Publisher = p } }
func WithLogger(l *slog.Logger) Option      { return func(s *Service) { s.Logger = l } }
func WithObserver(o Observer) Option        { return func(s *Service) { s.Metrics = o } }
func WithProducerName(n string) Option      { return func(s *Service) { s.Name = n } }
func WithStrictTransitions(on bool) Option {
	return func(s *Service) { s.States.StrictTransitions = on }
}

// CreateOrder checks out the user's whole cart.
func (s *Service) CreateOrder(ctx context.Context, userID int64, shippingAddress string) (Order, error) {
	start := time.Now()
	addr := strings.TrimSpace(shippingAddress)
	if addr == "" {
		return Order{}, ErrInvalidAddress
	}

	var order Order
	err := RunInTx(ctx, s.Store, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		order, err = s.Checkout.Execute(ctx, uow, userID, addr)
		return err
	})
	s.Metrics.Observe("create_order", err, time.Since(start))
	if err != nil {
		s.Logger.WarnContext(ctx, "checkout failed", "user_id", userID, "err", err)
		return Order{}, err
	}

	s.Logger.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", userID, "items", len(order.Items), "total", order.TotalPrice.String())
	s.publish(ctx, EventOrderCreated, order.ID, orderCreatedPayload(order))
	return order, nil
}

// GetOrderByID loads an order with items. A non-nil userID scopes the lookup to
// that user's orders.
func (s *Service) GetOrderByID(ctx context.Context, orderID int64, userID *int64) (Order, error) {
	var o Order
	err := RunInTx(ctx, s.Store, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		o, err = uow.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if userID != nil && o.UserID != *userID {
			return ErrOrderNotFound
		}
		return nil
	})
	return o, err
}

// GetUserOrders returns the user's orders, newest first.
func (s *Service) GetUserOrders(ctx context.Context, userID int64) ([]Order, error) {
	var out []Order
	err := RunInTx(ctx, s.Store, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		out, err = uow.Orders().ListByUser(ctx, userID)
		return err
	})
	return out, err
}

func (s *Service) CancelOrder(ctx context.Context, orderID, userID int64) (Order, error) {
	start := time.Now()
	var o Order
	err := RunInTx(ctx, s.Store, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		o, err = s.States.UserCancel(ctx, uow, orderID, userID)
		return err
	})
	s.Metrics.Observe("cancel_order", err, time.Since(start))
	if err != nil {
		return Order{}, err
	}
	s.statusChanged(ctx, o, StatusPending)
	return o, nil
}

// UpdateOrderStatus is the administrative status change.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status Status) (Order, error) {
	if !status.Valid() {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	start := time.Now()
	var before Status
	var o Order
	err := RunInTx(ctx, s.Store, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		o, before, err = s.States.changeStatus(ctx, uow, orderID, status)
		return err
	})
	s.Metrics.Observe("update_status", err, time.Since(start))
	if err != nil {
		return Order{}, err
	}
	s.statusChanged(ctx, o, before)
	return o, nil
}

func (s *Service) statusChanged(ctx context.Context, o Order, before Status) {
	if before == o.Status {
		return
	}
	restored := o.Status == StatusCancelled
	s.Logger.InfoContext(ctx, "order status changed",
		"order_id", o.ID, "from", before, "to", o.Status, "stock_restored", restored)
	s.publish(ctx, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		StockRestored: restored,
		ChangedAt:     time.Now().UTC(),
	})
}

// publish is best effort: the order is already committed.
func (s *Service) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	ev, err := NewEnvelope(eventType, s.Name, traceID(ctx), orderID, payload)
	if err == nil {
		err = s.Publisher.Publish(ctx, PartitionKey(orderID), ev)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.ErrorContext(ctx, "publish event", "event_type", eventType, "order_id", orderID, "err", err)
	}
}

type traceKey struct{}

// WithTraceID stores a request id that ends up on emitted events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
