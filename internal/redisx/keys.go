package redisx

import "time"

const (
	// Session token to identity JSON: session:{token}
	KeySession = "session:%s"

	// Cache of a single order's status, keyed by its owner so a warm entry
	// is never served across users: order_status:{user_id}:{order_id}
	KeyOrderStatus = "order_status:%s:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cached CEP lookups: cep:{digits}
	KeyCEP = "cep:%s"
)

// ChannelOrdersChanged carries the user_id whose order set changed. Every API
// instance bridges it into its local stream hub.
const ChannelOrdersChanged = "orders.changed"

var (
	TTLSession     = 12 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLCEP         = 24 * time.Hour
)
