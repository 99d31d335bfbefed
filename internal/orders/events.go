package orders

import (
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemSnapshot struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	Status     Status          `json:"status"`
	Items      []ItemSnapshot  `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type OrderStatusChangedPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        int64     `json:"user_id"`
	Status        Status    `json:"status"`
	StockRestored bool      `json:"stock_restored,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// NewEnvelope wraps payload in a v1 envelope correlated by order id.
func NewEnvelope(eventType, producer, traceID string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: fmt.Sprint(orderID),
		Payload:       b,
	}, nil
}

func orderCreatedPayload(o Order) OrderCreatedPayload {
	items := make([]ItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemSnapshot{
			ProductID: it.ProductID, ProductName: it.ProductName, Qty: it.Quantity, UnitPrice: it.UnitPrice,
		})
	}
	return OrderCreatedPayload{
		OrderID: o.ID, UserID: o.UserID, Status: o.Status, Items: items, TotalPrice: o.TotalPrice,
	}
}
