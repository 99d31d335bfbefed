package orders_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-cart-checkout/internal/memstore"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store  *memstore.Store
	cart   *orders.CartStore
	svc    *orders.Service
	events *recordingPublisher
}

func newFixture(t *testing.T, products ...orders.Product) *fixture {
	t.Helper()
	st := memstore.New()
	for _, p := range products {
		st.PutProduct(p)
	}
	ev := &recordingPublisher{}
	return &fixture{
		store:  st,
		cart:   orders.NewCartStore(st, quiet),
		svc:    orders.NewService(st, orders.WithLogger(quiet), orders.WithPublisher(ev)),
		events: ev,
	}
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, ok := f.store.Product(id)
	require.True(t, ok, "product %d", id)
	return p.Stock
}

func (f *fixture) add(t *testing.T, userID, productID int64, qty int) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []orders.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ []byte, ev orders.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evs))
	for _, ev := range p.evs {
		out = append(out, ev.EventType)
	}
	return out
}
