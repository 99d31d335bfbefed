package projector

import (
	"context"
	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"log/slog"
)

// Service projects order events into the Redis status cache read by the API.
type Service struct {
	Cache       *redisx.StatusCache
	ServiceName string
	Logger      *slog.Logger
}

// HandleMessage: dipasang sebagai handler consumer.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		s.Logger.WarnContext(ctx, "skip undecodable message", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil // poison message, commit and move on
	}

	// 2) dedup via Redis (pakai event_id)
	seen, err := s.Cache.Seen(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	// 3) decode payload
	var next redisx.CachedStatus
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		next = redisx.CachedStatus{OrderID: p.OrderID, UserID: p.UserID, Status: p.Status, UpdatedAt: env.OccurredAt}
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		next = redisx.CachedStatus{OrderID: p.OrderID, UserID: p.UserID, Status: p.Status, UpdatedAt: p.ChangedAt}
	default:
		return nil // ignore
	}

	// 4) jangan timpa status yang lebih baru
	cur, ok, err := s.Cache.Get(ctx, next.OrderID)
	if err != nil {
		return err
	}
	if !ok || !cur.UpdatedAt.After(next.UpdatedAt) {
		if err := s.Cache.Set(ctx, next); err != nil {
			return err
		}
		s.Logger.DebugContext(ctx, "status projected", "order_id", next.OrderID, "status", next.Status)
	}
	return s.Cache.MarkSeen(ctx, s.ServiceName, env.EventID)
}
