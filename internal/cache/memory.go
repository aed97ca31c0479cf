// Package cache provides the advisory notification-dedup fast path. A hit
// lets a handler skip an immediate redelivery cheaply, but the caches are
// best-effort only: the ledger's own duplicate check remains the authority,
// so losing or missing an entry here is always safe.
package cache

import (
	"context"
	"sync"
	"time"
)

// Memory tracks recently seen notification identifiers in process. It is
// neither durable nor shared across instances.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, seen: make(map[string]time.Time)}
}

// Seen reports whether id has been marked. It never marks: an id enters
// the cache only through Mark, after its outcome is settled.
func (c *Memory) Seen(ctx context.Context, id string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, at := range c.seen {
		if now.Sub(at) > c.ttl {
			delete(c.seen, k)
		}
	}
	at, ok := c.seen[id]
	return ok && now.Sub(at) <= c.ttl
}

// Mark records id as settled.
func (c *Memory) Mark(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[id] = time.Now()
}
