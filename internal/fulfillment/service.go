// Package fulfillment consumes order.created events, reserves stock, and
// advances the order status accordingly: PENDING becomes CONFIRMED when every
// line reserves, CANCELLED when stock is short.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/acougue-online/storefront/internal/kafka"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/redisx"
)

type ReservationStore interface {
	Reserved(ctx context.Context, orderID string, itemCount int) (bool, error)
	ReserveAll(ctx context.Context, orderID string, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error)
	ReleaseAll(ctx context.Context, orderID string) error
}

type Service struct {
	Reservations   ReservationStore
	Statuses       *orders.StatusService
	Redis          *redis.Client // optional dedup store
	ProducerOK     orders.EventSink // publishes order.stock.reserved
	ProducerReject orders.EventSink // publishes order.stock.rejected
	ServiceName    string
	Logger         *zap.Logger
}

// HandleOrderCreated is installed as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventOrderCreated {
		return nil // not ours
	}
	if s.seenEvent(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	items := make([]orders.ItemQty, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}

	// replayed event after a successful reservation: just re-announce
	if ok, _ := s.Reservations.Reserved(ctx, p.OrderID, len(items)); ok {
		s.publishReserved(p.OrderID, items, env.TraceID)
		s.markEvent(ctx, env.EventID)
		return nil
	}

	ok, details, err := s.Reservations.ReserveAll(ctx, p.OrderID, items)
	if err != nil {
		// not marked, so a redelivery retries the reservation
		return err
	}

	if ok {
		s.publishReserved(p.OrderID, items, env.TraceID)
		if _, err := s.Statuses.Transition(ctx, p.OrderID, orders.StatusConfirmed); err != nil {
			s.Logger.Error("confirm after reserve failed",
				zap.String("order_id", p.OrderID), zap.Error(err))
		}
		s.markEvent(ctx, env.EventID)
		return nil
	}

	s.publishRejected(p.OrderID, details, env.TraceID)
	if _, err := s.Statuses.Transition(ctx, p.OrderID, orders.StatusCancelled); err != nil {
		s.Logger.Error("cancel after rejection failed",
			zap.String("order_id", p.OrderID), zap.Error(err))
	}
	s.markEvent(ctx, env.EventID)
	return nil
}

// seenEvent and markEvent bracket a handler: events are marked only once
// handling succeeds, so a transient failure stays retryable on redelivery.
func (s *Service) seenEvent(ctx context.Context, eventID string) bool {
	if s.Redis == nil {
		return false
	}
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", eventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	return exists
}

func (s *Service) markEvent(ctx context.Context, eventID string) {
	if s.Redis == nil {
		return
	}
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", eventID)
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}

func (s *Service) publishReserved(orderID string, items []orders.ItemQty, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockReserved,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.StockReservedPayload{OrderID: orderID, Items: items}),
	}
	s.ProducerOK.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockReserved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishRejected(orderID string, details []orders.StockRejectedDetail, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockRejected,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StockRejectedPayload{
			OrderID: orderID, Reason: "OUT_OF_STOCK", Details: details,
		}),
	}
	s.ProducerReject.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// HandleStatusChanged restores reserved stock when an order reaches
// CANCELLED after its reservation went through (staff cancellations). Orders
// cancelled for lack of stock never held a reservation, so the release is a
// no-op for them.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}
	if s.seenEvent(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.To != orders.StatusCancelled {
		return nil
	}

	if err := s.Reservations.ReleaseAll(ctx, p.OrderID); err != nil {
		return err
	}
	s.markEvent(ctx, env.EventID)
	s.Logger.Info("reservations released", zap.String("order_id", p.OrderID))
	return nil
}
