package kafka

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/segmentio/kafka-go"
	"strconv"
)

var topicByEvent = map[string]string{
	orders.EventOrderCreated:       orders.TopicOrderCreated,
	orders.EventOrderStatusChanged: orders.TopicOrderStatusChanged,
}

// OrderEvents publishes order envelopes to their topic.
type OrderEvents struct{ Producer *Producer }

func (e OrderEvents) Publish(ctx context.Context, key []byte, ev orders.Envelope) error {
	topic, ok := topicByEvent[ev.EventType]
	if !ok {
		return fmt.Errorf("no topic for event %q", ev.EventType)
	}
	value, err := Marshal(ev)
	if err != nil {
		return err
	}
	return e.Producer.Publish(ctx, topic, key, value,
		kafka.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}
