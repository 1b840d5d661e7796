package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/acougue-online/storefront/internal/kafka"
)

// StatusService is the single writer of status transitions. Every move is
// validated against the state machine and applied as a compare-and-set so a
// concurrent transition cannot skip or revert states.
type StatusService struct {
	Orders  Store
	Notify  Notifier  // optional
	Events  EventSink // optional
	Service string
	Logger  *zap.Logger
}

func (s *StatusService) Transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	ok, err := s.Orders.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost the race against another transition
		return nil, fmt.Errorf("%w: order %s no longer %s", ErrInvalidTransition, orderID, from)
	}

	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.publishStatusChanged(o, from, to)
	if s.Notify != nil {
		s.Notify.OrdersChanged(ctx, o.UserID)
	}
	s.Logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return o, nil
}

func (s *StatusService) publishStatusChanged(o *Order, from, to Status) {
	if s.Events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderStatusChangedPayload{
			OrderID: o.ID,
			UserID:  o.UserID,
			From:    from,
			To:      to,
		}),
	}
	s.Events.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
