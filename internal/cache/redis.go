package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares the dedup fast path across instances with SET NX. Errors are
// reported as "not seen" so a flaky Redis degrades to the ledger-side check
// instead of dropping notifications.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (c *Redis) Seen(ctx context.Context, id string) bool {
	n, err := c.client.Exists(ctx, dedupKey(id)).Result()
	if err != nil {
		log.Printf("dedup cache unavailable, falling through: %v", err)
		return false
	}
	return n > 0
}

func (c *Redis) Mark(ctx context.Context, id string) {
	if err := c.client.Set(ctx, dedupKey(id), 1, c.ttl).Err(); err != nil {
		log.Printf("dedup cache mark failed: %v", err)
	}
}

func dedupKey(id string) string {
	return "handypay:event:" + id
}
