package redisx

import "time"

const (
	// Cached product read model: product:{product_id}
	KeyProduct = "product:%s"

	// Cached inventory status: inventory:{product_id}
	KeyInventoryStatus = "inventory:%s"

	// Advisory lock: lock:{name}, value = owner token
	KeyLock = "lock:%s"

	// Dedup event processing: dedup:{scope}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
