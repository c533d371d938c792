package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids for TTLDedup. It is a fast path only;
// correctness still rests on the store-level idempotency guards.
type Dedup struct {
	RDB   redis.Cmdable
	Scope string
}

func (d *Dedup) key(eventID string) string { return fmt.Sprintf(KeyDedup, d.Scope, eventID) }

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, d.key(eventID))
}

func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, d.key(eventID), "1", TTLDedup).Err()
}
