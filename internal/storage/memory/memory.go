// Package memory is the in-memory storage double backing service tests. It
// implements the catalog, cart, and order store interfaces plus the
// transaction manager; WithTransaction snapshots all state and restores it
// when the callback fails, so rollback behavior is observable without
// Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/acougue-online/storefront/internal/cart"
	"github.com/acougue-online/storefront/internal/catalog"
	"github.com/acougue-online/storefront/internal/orders"
)

type Store struct {
	mu sync.RWMutex

	products     map[string]catalog.Product
	kits         map[string]catalog.Kit
	cartLines    map[string][]cart.Line // per user, insertion order
	orders       map[string]orders.Order
	orderNumbers map[string]string // order number -> order id

	// ClearErr, when set, is returned by Clear. Lets tests inject a store
	// failure mid-transaction.
	ClearErr error
}

var (
	_ catalog.Store    = (*Store)(nil)
	_ cart.Store       = (*Store)(nil)
	_ orders.Store     = (*Store)(nil)
	_ orders.TxManager = (*Store)(nil)
)

func New() *Store {
	return &Store{
		products:     make(map[string]catalog.Product),
		kits:         make(map[string]catalog.Kit),
		cartLines:    make(map[string][]cart.Line),
		orders:       make(map[string]orders.Order),
		orderNumbers: make(map[string]string),
	}
}

// transaction-aware locking: inside WithTransaction the write lock is already
// held and repositories must not lock again.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (m *Store) rlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RLock()
	}
}
func (m *Store) runlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *Store) wlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Lock()
	}
}
func (m *Store) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		m.mu.Unlock()
	}
}

// WithTransaction serializes writers and restores the pre-transaction state
// when fn fails.
func (m *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products     map[string]catalog.Product
	kits         map[string]catalog.Kit
	cartLines    map[string][]cart.Line
	orders       map[string]orders.Order
	orderNumbers map[string]string
}

func (m *Store) snapshot() snapshot {
	s := snapshot{
		products:     make(map[string]catalog.Product, len(m.products)),
		kits:         make(map[string]catalog.Kit, len(m.kits)),
		cartLines:    make(map[string][]cart.Line, len(m.cartLines)),
		orders:       make(map[string]orders.Order, len(m.orders)),
		orderNumbers: make(map[string]string, len(m.orderNumbers)),
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.kits {
		v.Items = append([]catalog.KitItem(nil), v.Items...)
		s.kits[k] = v
	}
	for k, v := range m.cartLines {
		s.cartLines[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range m.orders {
		v.Items = append([]orders.OrderItem(nil), v.Items...)
		s.orders[k] = v
	}
	for k, v := range m.orderNumbers {
		s.orderNumbers[k] = v
	}
	return s
}

func (m *Store) restore(s snapshot) {
	m.products = s.products
	m.kits = s.kits
	m.cartLines = s.cartLines
	m.orders = s.orders
	m.orderNumbers = s.orderNumbers
}

// ---- seeding helpers ----

func (m *Store) SeedProduct(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Store) SeedKit(k catalog.Kit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kits[k.ID] = k
}

// ---- catalog.Store ----

func (m *Store) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *Store) GetProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *Store) GetKit(ctx context.Context, id string) (*catalog.Kit, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	k, ok := m.kits[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := k
	cp.Items = append([]catalog.KitItem(nil), k.Items...)
	return &cp, nil
}

func (m *Store) ListKits(ctx context.Context) ([]catalog.Kit, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]catalog.Kit, 0, len(m.kits))
	for _, k := range m.kits {
		k.Items = append([]catalog.KitItem(nil), k.Items...)
		out = append(out, k)
	}
	return out, nil
}

// ---- cart.Store ----

func (m *Store) Upsert(ctx context.Context, userID, productID string, qty int) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	lines := m.cartLines[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Qty += qty
			return nil
		}
	}
	m.cartLines[userID] = append(lines, cart.Line{
		UserID:    userID,
		ProductID: productID,
		Qty:       qty,
		AddedAt:   time.Now().UTC(),
	})
	return nil
}

func (m *Store) Remove(ctx context.Context, userID, productID string) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	lines := m.cartLines[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			m.cartLines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Store) Clear(ctx context.Context, userID string) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.cartLines, userID)
	return nil
}

func (m *Store) List(ctx context.Context, userID string) ([]cart.Line, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return append([]cart.Line(nil), m.cartLines[userID]...), nil
}

// ---- orders.Store ----

func (m *Store) Insert(ctx context.Context, o *orders.Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, taken := m.orderNumbers[o.OrderNumber]; taken {
		return fmt.Errorf("order number %s: %w", o.OrderNumber, orders.ErrDuplicateOrderNumber)
	}
	cp := *o
	cp.Items = append([]orders.OrderItem(nil), o.Items...)
	m.orders[o.ID] = cp
	m.orderNumbers[o.OrderNumber] = o.ID
	return nil
}

func (m *Store) GetByID(ctx context.Context, id string) (*orders.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	o, ok := m.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := o
	cp.Items = append([]orders.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *Store) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	var out []orders.Order
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		o.Items = append([]orders.OrderItem(nil), o.Items...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) UpdateStatus(ctx context.Context, id string, from, to orders.Status) (bool, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return true, nil
}
