// Package memstore is an in-process implementation of the order storage ports.
// Units of work are fully serialized: one runs at a time and works on a private
// copy of the data that replaces the shared copy on commit.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"sort"
	"time"
)

var errTxDone = errors.New("memstore: unit of work already finished")

type cartKey struct{ userID, productID int64 }

type state struct {
	products map[int64]orders.Product
	carts    map[cartKey]orders.CartLine
	orders   map[int64]orders.Order

	nextCartID, nextOrderID, nextItemID int64
}

func (s *state) clone() *state {
	c := &state{
		products:    make(map[int64]orders.Product, len(s.products)),
		carts:       make(map[cartKey]orders.CartLine, len(s.carts)),
		orders:      make(map[int64]orders.Order, len(s.orders)),
		nextCartID:  s.nextCartID,
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]orders.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

type Store struct {
	sem  chan struct{}
	data *state
	Now  func() time.Time
}

func New() *Store {
	return &Store{
		sem: make(chan struct{}, 1),
		data: &state{
			products: map[int64]orders.Product{},
			carts:    map[cartKey]orders.CartLine{},
			orders:   map[int64]orders.Order{},
		},
		Now: time.Now,
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for lock: %w", orders.ErrStoreConflict, ctx.Err())
	}
}

func (s *Store) release() { <-s.sem }

// Begin waits until no other unit of work is running. Cancelling ctx while
// waiting returns ErrStoreConflict, like a lock timeout would.
func (s *Store) Begin(ctx context.Context) (orders.UnitOfWork, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &tx{store: s, work: s.data.clone()}, nil
}

// PutProduct inserts or replaces a product. Meant for seeding and admin edits.
func (s *Store) PutProduct(p orders.Product) {
	_ = s.acquire(context.Background())
	defer s.release()
	s.data.products[p.ID] = p
}

func (s *Store) Product(id int64) (orders.Product, bool) {
	_ = s.acquire(context.Background())
	defer s.release()
	p, ok := s.data.products[id]
	return p, ok
}

// CartLen counts the committed cart lines of a user.
func (s *Store) CartLen(userID int64) int {
	_ = s.acquire(context.Background())
	defer s.release()
	n := 0
	for k := range s.data.carts {
		if k.userID == userID {
			n++
		}
	}
	return n
}

// OrderCount counts committed orders.
func (s *Store) OrderCount() int {
	_ = s.acquire(context.Background())
	defer s.release()
	return len(s.data.orders)
}

type tx struct {
	store *Store
	work  *state
	done  bool
}

func (t *tx) Catalog() orders.CatalogAccessor { return catalog{t} }
func (t *tx) Carts() orders.CartRepository    { return carts{t} }
func (t *tx) Orders() orders.Ledger           { return ledger{t} }

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.data = t.work
	t.store.release()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.release()
	return nil
}

func (t *tx) check() error {
	if t.done {
		return errTxDone
	}
	return nil
}

type catalog struct{ t *tx }

func (c catalog) Get(ctx context.Context, id int64) (orders.Product, error) {
	if err := c.t.check(); err != nil {
		return orders.Product{}, err
	}
	p, ok := c.t.work.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, nil
}

// GetForCheckout needs no extra locking: the unit of work is already exclusive.
func (c catalog) GetForCheckout(ctx context.Context, id int64) (orders.Product, error) {
	return c.Get(ctx, id)
}

func (c catalog) TryDecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	if err := c.t.check(); err != nil {
		return false, err
	}
	p, ok := c.t.work.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	c.t.work.products[id] = p
	return true, nil
}

func (c catalog) IncrementStock(ctx context.Context, id int64, qty int) error {
	if err := c.t.check(); err != nil {
		return err
	}
	p, ok := c.t.work.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d missing", orders.ErrIntegrity, id)
	}
	p.Stock += qty
	c.t.work.products[id] = p
	return nil
}

type carts struct{ t *tx }

func (c carts) Get(ctx context.Context, userID, productID int64) (orders.CartLine, error) {
	if err := c.t.check(); err != nil {
		return orders.CartLine{}, err
	}
	ln, ok := c.t.work.carts[cartKey{userID, productID}]
	if !ok {
		return orders.CartLine{}, orders.ErrNotFoundInCart
	}
	return ln, nil
}

func (c carts) listByUser(ctx context.Context, userID int64) ([]orders.CartLine, error) {
	if err := c.t.check(); err != nil {
		return nil, err
	}
	var out []orders.CartLine
	for k, ln := range c.t.work.carts {
		if k.userID == userID {
			out = append(out, ln)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c carts) ListByUserForUpdate(ctx context.Context, userID int64) ([]orders.CartLine, error) {
	return c.listByUser(ctx, userID)
}

func (c carts) ListWithProducts(ctx context.Context, userID int64) ([]orders.CartItemView, error) {
	lines, err := c.listByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]orders.CartItemView, 0, len(lines))
	for _, ln := range lines {
		p, ok := c.t.work.products[ln.ProductID]
		if !ok {
			continue // inner join
		}
		out = append(out, orders.CartItemView{CartLine: ln, Product: p})
	}
	return out, nil
}

func (c carts) Save(ctx context.Context, ln orders.CartLine) (orders.CartLine, error) {
	if err := c.t.check(); err != nil {
		return orders.CartLine{}, err
	}
	k := cartKey{ln.UserID, ln.ProductID}
	if cur, ok := c.t.work.carts[k]; ok {
		ln.ID, ln.CreatedAt = cur.ID, cur.CreatedAt
	} else {
		c.t.work.nextCartID++
		ln.ID = c.t.work.nextCartID
		if ln.CreatedAt.IsZero() {
			ln.CreatedAt = c.t.store.Now().UTC()
		}
	}
	c.t.work.carts[k] = ln
	return ln, nil
}

func (c carts) Delete(ctx context.Context, userID, productID int64) (bool, error) {
	if err := c.t.check(); err != nil {
		return false, err
	}
	k := cartKey{userID, productID}
	if _, ok := c.t.work.carts[k]; !ok {
		return false, nil
	}
	delete(c.t.work.carts, k)
	return true, nil
}

func (c carts) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	if err := c.t.check(); err != nil {
		return 0, err
	}
	n := 0
	for k := range c.t.work.carts {
		if k.userID == userID {
			delete(c.t.work.carts, k)
			n++
		}
	}
	return n, nil
}

type ledger struct{ t *tx }

func (l ledger) Insert(ctx context.Context, o *orders.Order) error {
	if err := l.t.check(); err != nil {
		return err
	}
	l.t.work.nextOrderID++
	o.ID = l.t.work.nextOrderID
	o.CreatedAt = l.t.store.Now().UTC()
	stored := *o
	stored.Items = nil
	l.t.work.orders[o.ID] = stored
	return nil
}

func (l ledger) InsertItem(ctx context.Context, it *orders.OrderItem) error {
	if err := l.t.check(); err != nil {
		return err
	}
	o, ok := l.t.work.orders[it.OrderID]
	if !ok {
		return fmt.Errorf("%w: order %d missing for item", orders.ErrIntegrity, it.OrderID)
	}
	l.t.work.nextItemID++
	it.ID = l.t.work.nextItemID
	o.Items = append(o.Items, *it)
	l.t.work.orders[o.ID] = o
	return nil
}

func (l ledger) Get(ctx context.Context, orderID int64) (orders.Order, error) {
	if err := l.t.check(); err != nil {
		return orders.Order{}, err
	}
	o, ok := l.t.work.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o, nil
}

func (l ledger) GetForUpdate(ctx context.Context, orderID int64) (orders.Order, error) {
	return l.Get(ctx, orderID)
}

func (l ledger) ListByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	if err := l.t.check(); err != nil {
		return nil, err
	}
	var out []orders.Order
	for _, o := range l.t.work.orders {
		if o.UserID == userID {
			o.Items = append([]orders.OrderItem(nil), o.Items...)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (l ledger) UpdateStatus(ctx context.Context, orderID int64, status orders.Status) error {
	if err := l.t.check(); err != nil {
		return err
	}
	o, ok := l.t.work.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status = status
	l.t.work.orders[orderID] = o
	return nil
}
