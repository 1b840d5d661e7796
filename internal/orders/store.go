package orders

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

// TxManager wraps a function in one atomic unit against the store. Postgres
// backs it with a real transaction; the in-memory store with a lock plus
// snapshot/restore.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Store interface {
	// Insert persists an order with its item snapshots. Returns
	// ErrDuplicateOrderNumber when the order number is already taken.
	Insert(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first, items included.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus moves id from one status to another as a compare-and-set;
	// it reports false when the row was not in the expected state.
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

// Notifier pokes the status channel for a user whose order set changed.
type Notifier interface {
	OrdersChanged(ctx context.Context, userID string)
}

// EventSink is the fire-and-forget publishing surface of the Kafka producer.
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
