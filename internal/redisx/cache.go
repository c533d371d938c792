package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProductCache drops cached product documents after stock writes.
type ProductCache struct {
	RDB redis.Cmdable
}

func (c *ProductCache) Invalidate(ctx context.Context, productID string) error {
	return c.RDB.Del(ctx,
		fmt.Sprintf(KeyProduct, productID),
		fmt.Sprintf(KeyInventoryStatus, productID),
	).Err()
}
