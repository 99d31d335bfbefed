package metrics

import (
	"errors"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

// Recorder counts order operations by outcome and times them.
type Recorder struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "operations_total",
			Help:      "Order operations by result.",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "operation_duration_seconds",
			Help:      "Order operation latency including the unit of work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(r.ops, r.latency)
	return r
}

func (r *Recorder) Observe(op string, err error, took time.Duration) {
	r.ops.WithLabelValues(op, Result(err)).Inc()
	r.latency.WithLabelValues(op).Observe(took.Seconds())
}

// Result maps an error to a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, orders.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, orders.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, orders.ErrStoreConflict):
		return "conflict"
	case errors.Is(err, orders.ErrInvalidStateTransition), errors.Is(err, orders.ErrInvalidStatus):
		return "invalid_transition"
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}
