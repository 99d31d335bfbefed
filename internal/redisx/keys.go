package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"order_id":..,"status":"...","updated_at":"..."}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
