package orders_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/catalog"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/storage/memory"
)

var numberRe = regexp.MustCompile(`^[A-Z]{2}\d{4}-\d{3}[0-9A-F]{2}$`)

type recordingSink struct {
	mu       sync.Mutex
	messages [][]byte
}

func (r *recordingSink) Publish(key, value []byte, headers ...kafkago.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, value)
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingNotifier) OrdersChanged(ctx context.Context, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func newCheckout(store *memory.Store) (*orders.Checkout, *recordingSink, *recordingNotifier) {
	sink := &recordingSink{}
	notify := &recordingNotifier{}
	return &orders.Checkout{
		Tx:      store,
		Catalog: store,
		Carts:   store,
		Orders:  store,
		Notify:  notify,
		Events:  sink,
		Service: "storefront-test",
		Logger:  zap.NewNop(),
	}, sink, notify
}

func seedTwoProducts(store *memory.Store) (picanha, linguica catalog.Product) {
	picanha = catalog.Product{ID: "11111111-1111-1111-1111-111111111111", SKU: "PIC-500", Name: "Picanha 500g", PriceCents: 50, Stock: 10, Available: true}
	linguica = catalog.Product{ID: "22222222-2222-2222-2222-222222222222", SKU: "LIN-300", Name: "Linguica 300g", PriceCents: 30, Stock: 10, Available: true}
	store.SeedProduct(picanha)
	store.SeedProduct(linguica)
	return picanha, linguica
}

func TestCreateOrderFromCart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, linguica := seedTwoProducts(store)
	co, sink, notify := newCheckout(store)

	user := &auth.Identity{UserID: "u1", Name: "Ana Duarte"}
	require.NoError(t, store.Upsert(ctx, "u1", picanha.ID, 2))
	require.NoError(t, store.Upsert(ctx, "u1", linguica.ID, 1))

	o, err := co.CreateOrder(ctx, user, orders.CheckoutInput{})
	require.NoError(t, err)

	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, 2*50+1*30, o.TotalCents)
	assert.Len(t, o.Items, 2)
	assert.Regexp(t, numberRe, o.OrderNumber)

	// unit prices are snapshots of the catalog, never client input
	assert.Equal(t, 50, o.Items[0].UnitPriceCents)
	assert.Equal(t, 30, o.Items[1].UnitPriceCents)

	// cart is cleared in the same transaction
	lines, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// persisted and listed newest first
	got, err := store.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)

	assert.Len(t, sink.messages, 1)
	assert.Equal(t, []string{"u1"}, notify.users)
}

func TestCreateOrderExplicitItemsKeepsCart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, _ := seedTwoProducts(store)
	co, _, _ := newCheckout(store)

	user := &auth.Identity{UserID: "u1", Name: "Ana Duarte"}
	require.NoError(t, store.Upsert(ctx, "u1", picanha.ID, 5))

	o, err := co.CreateOrder(ctx, user, orders.CheckoutInput{
		Items: []orders.ItemInput{
			{ProductID: picanha.ID, Qty: 1},
			{ProductID: picanha.ID, Qty: 2}, // duplicates merge
		},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Qty)

	// explicit items do not touch the cart
	lines, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCreateOrderFromKit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, linguica := seedTwoProducts(store)
	store.SeedKit(catalog.Kit{
		ID: "kit-1", Name: "Churrasco", Available: true,
		Items: []catalog.KitItem{
			{ProductID: picanha.ID, Qty: 2},
			{ProductID: linguica.ID, Qty: 3},
		},
	})
	co, _, _ := newCheckout(store)

	o, err := co.CreateOrder(ctx, &auth.Identity{UserID: "u1", Name: "Ana"}, orders.CheckoutInput{KitID: "kit-1"})
	require.NoError(t, err)
	assert.Equal(t, 2*50+3*30, o.TotalCents)
	assert.Len(t, o.Items, 2)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	co, sink, _ := newCheckout(store)

	_, err := co.CreateOrder(ctx, &auth.Identity{UserID: "u1", Name: "Ana"}, orders.CheckoutInput{})
	require.ErrorIs(t, err, orders.ErrEmptyCart)
	assert.Empty(t, sink.messages)
}

func TestCreateOrderUnauthenticated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	co, _, _ := newCheckout(store)

	_, err := co.CreateOrder(ctx, nil, orders.CheckoutInput{})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = co.CreateOrder(ctx, &auth.Identity{}, orders.CheckoutInput{})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestCreateOrderUnavailableProductLeavesCartIntact(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, _ := seedTwoProducts(store)
	frozen := catalog.Product{ID: "33333333-3333-3333-3333-333333333333", SKU: "FRZ-1", Name: "Frozen", PriceCents: 99, Stock: 10, Available: false}
	store.SeedProduct(frozen)
	co, sink, _ := newCheckout(store)

	require.NoError(t, store.Upsert(ctx, "u1", picanha.ID, 1))
	require.NoError(t, store.Upsert(ctx, "u1", frozen.ID, 1))

	_, err := co.CreateOrder(ctx, &auth.Identity{UserID: "u1", Name: "Ana"}, orders.CheckoutInput{})
	require.ErrorIs(t, err, orders.ErrProductUnavailable)

	lines, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 2, "cart must survive a failed checkout")
	assert.Empty(t, sink.messages)

	list, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list, "no order row may remain after rollback")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, _ := seedTwoProducts(store)
	co, _, _ := newCheckout(store)

	_, err := co.CreateOrder(ctx, &auth.Identity{UserID: "u1", Name: "Ana"}, orders.CheckoutInput{
		Items: []orders.ItemInput{{ProductID: picanha.ID, Qty: 11}},
	})
	require.ErrorIs(t, err, orders.ErrProductUnavailable)
}

func TestCreateOrderRollsBackWhenCartClearFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, _ := seedTwoProducts(store)
	co, sink, notify := newCheckout(store)

	require.NoError(t, store.Upsert(ctx, "u1", picanha.ID, 1))
	store.ClearErr = errors.New("boom")

	_, err := co.CreateOrder(ctx, &auth.Identity{UserID: "u1", Name: "Ana"}, orders.CheckoutInput{})
	require.Error(t, err)

	// the already-inserted order must be gone
	list, lerr := store.ListByUser(ctx, "u1")
	require.NoError(t, lerr)
	assert.Empty(t, list)
	assert.Empty(t, sink.messages)
	assert.Empty(t, notify.users)

	// and the cart line survives
	store.ClearErr = nil
	lines, lerr := store.List(ctx, "u1")
	require.NoError(t, lerr)
	assert.Len(t, lines, 1)
}

func TestCreateOrderRejectsNonPositiveQty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	picanha, _ := seedTwoProducts(store)
	co, sink, _ := newCheckout(store)

	user := &auth.Identity{UserID: "u1", Name: "Ana Duarte"}
	for _, qty := range []int{0, -3} {
		_, err := co.CreateOrder(ctx, user, orders.CheckoutInput{
			Items: []orders.ItemInput{{ProductID: picanha.ID, Qty: qty}},
		})
		require.ErrorIs(t, err, orders.ErrInvalidQty, "qty %d", qty)
	}

	got, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, sink.messages)
}
