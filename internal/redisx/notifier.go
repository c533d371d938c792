package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier is the realtime sink: events are JSON published on pub/sub
// channels that the websocket gateway relays to browsers.
type Notifier struct {
	RDB redis.Cmdable
}

func (n *Notifier) Publish(ctx context.Context, channel string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", channel, err)
	}
	return n.RDB.Publish(ctx, channel, b).Err()
}
