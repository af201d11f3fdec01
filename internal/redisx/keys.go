package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"order_id": "...", "status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Webhook yang sudah diproses: webhook:{gateway}:{event_id}
	KeyWebhookSeen = "webhook:%s:%s"

	// Flag merge cart sekali per sesi login: cart:synced:{session_id} -> user_id
	KeyCartSynced = "cart:synced:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLWebhookSeen = 72 * time.Hour
	TTLCartSynced  = 30 * 24 * time.Hour
)
