package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/cart"
	"github.com/acougue-online/storefront/internal/catalog"
	kafkax "github.com/acougue-online/storefront/internal/kafka"
	"github.com/acougue-online/storefront/internal/telemetry"
)

const maxOrderNumberAttempts = 5

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// CheckoutInput selects the order source: explicit items, a kit, or (when
// both are empty) the caller's cart. Prices never come from the client.
type CheckoutInput struct {
	Items []ItemInput `json:"items,omitempty"`
	KitID string      `json:"kit_id,omitempty"`
}

// Checkout converts a selection into a persisted order. The whole sequence
// runs in one transaction: price/availability checks, order insert, item
// snapshots, and cart clearing commit or roll back together.
type Checkout struct {
	Tx      TxManager
	Catalog catalog.Store
	Carts   cart.Store
	Orders  Store
	Notify  Notifier  // optional
	Events  EventSink // optional
	Service string
	Logger  *zap.Logger

	// now is swappable in tests; zero value means time.Now.
	now func() time.Time
}

func (c *Checkout) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

func (c *Checkout) CreateOrder(ctx context.Context, user *auth.Identity, in CheckoutInput) (*Order, error) {
	if user == nil || user.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	var created *Order
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o, err := c.createOnce(ctx, user, in)
		if errors.Is(err, ErrDuplicateOrderNumber) {
			telemetry.OrderNumberRetries.Inc()
			c.Logger.Warn("order number collision, regenerating",
				zap.String("user_id", user.UserID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		created = o
		break
	}
	if created == nil {
		return nil, fmt.Errorf("create order: %w", ErrDuplicateOrderNumber)
	}

	telemetry.OrdersCreated.Inc()
	c.publishCreated(ctx, created)
	if c.Notify != nil {
		c.Notify.OrdersChanged(ctx, created.UserID)
	}
	c.Logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("user_id", created.UserID),
		zap.Int("total_cents", created.TotalCents))
	return created, nil
}

func (c *Checkout) createOnce(ctx context.Context, user *auth.Identity, in CheckoutInput) (*Order, error) {
	var created *Order
	err := c.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		lines, fromCart, err := c.resolveLines(ctx, user.UserID, in)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		items, total, err := c.priceLines(ctx, lines)
		if err != nil {
			return err
		}

		now := c.clock()
		o := &Order{
			ID:          uuid.NewString(),
			OrderNumber: GenerateOrderNumber(user.Name, now),
			UserID:      user.UserID,
			Status:      StatusPending,
			TotalCents:  total,
			Items:       items,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := c.Orders.Insert(ctx, o); err != nil {
			return err
		}
		if fromCart {
			if err := c.Carts.Clear(ctx, user.UserID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// resolveLines turns the input into (product, qty) lines. Duplicate product
// ids are merged.
func (c *Checkout) resolveLines(ctx context.Context, userID string, in CheckoutInput) ([]ItemQty, bool, error) {
	switch {
	case len(in.Items) > 0:
		for _, it := range in.Items {
			if it.Qty <= 0 {
				return nil, false, fmt.Errorf("%w: product %s", ErrInvalidQty, it.ProductID)
			}
		}
		merged := mergeLines(in.Items)
		return merged, false, nil

	case in.KitID != "":
		kit, err := c.Catalog.GetKit(ctx, in.KitID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: kit %s", ErrProductUnavailable, in.KitID)
		}
		if err != nil {
			return nil, false, err
		}
		if !kit.Available {
			return nil, false, fmt.Errorf("%w: kit %s", ErrProductUnavailable, in.KitID)
		}
		items := make([]ItemInput, 0, len(kit.Items))
		for _, it := range kit.Items {
			items = append(items, ItemInput{ProductID: it.ProductID, Qty: it.Qty})
		}
		return mergeLines(items), false, nil

	default:
		lines, err := c.Carts.List(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		items := make([]ItemInput, 0, len(lines))
		for _, l := range lines {
			items = append(items, ItemInput{ProductID: l.ProductID, Qty: l.Qty})
		}
		return mergeLines(items), true, nil
	}
}

// priceLines re-fetches authoritative product data and builds the snapshot
// items. Any missing, unavailable, or under-stocked product fails the whole
// checkout instead of being silently dropped.
func (c *Checkout) priceLines(ctx context.Context, lines []ItemQty) ([]OrderItem, int, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	prods, err := c.Catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]OrderItem, 0, len(lines))
	total := 0
	for _, l := range lines {
		p, ok := prods[l.ProductID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: product %s not found", ErrProductUnavailable, l.ProductID)
		}
		if !p.Available || p.Stock < l.Qty {
			return nil, 0, fmt.Errorf("%w: product %s", ErrProductUnavailable, l.ProductID)
		}
		items = append(items, OrderItem{
			ID:             uuid.NewString(),
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Qty:            l.Qty,
		})
		total += p.PriceCents * l.Qty
	}
	return items, total, nil
}

func (c *Checkout) publishCreated(ctx context.Context, o *Order) {
	if c.Events == nil {
		return
	}
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Qty:        it.Qty,
			PriceCents: it.UnitPriceCents,
		})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    c.clock(),
		Producer:      c.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Items:       items,
			TotalCents:  o.TotalCents,
		}),
	}
	c.Events.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func mergeLines(items []ItemInput) []ItemQty {
	idx := map[string]int{}
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Qty += it.Qty
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	return out
}
