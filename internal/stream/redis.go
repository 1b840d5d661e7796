package stream

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/redisx"
)

// RedisNotifier publishes change notifications to the shared Redis channel so
// they reach the hub of every API instance, not just the local process.
type RedisNotifier struct {
	RDB    *redis.Client
	Logger *zap.Logger
}

func (n *RedisNotifier) OrdersChanged(ctx context.Context, userID string) {
	if err := n.RDB.Publish(ctx, redisx.ChannelOrdersChanged, userID).Err(); err != nil {
		n.Logger.Error("publish orders.changed", zap.String("user_id", userID), zap.Error(err))
	}
}

// RunRedisBridge subscribes to the shared channel and forwards each message
// into the local hub. Malformed messages are logged and skipped; the bridge
// only stops when ctx is cancelled.
func RunRedisBridge(ctx context.Context, rdb *redis.Client, hub *Hub, logger *zap.Logger) error {
	sub := rdb.Subscribe(ctx, redisx.ChannelOrdersChanged)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == "" {
				logger.Warn("orders.changed message without user id")
				continue
			}
			hub.OrdersChanged(ctx, msg.Payload)
		}
	}
}
