package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	identifier string
	bucket     int64
}

// MemoryCounter keeps counters in process. Suitable for a single instance
// and for tests.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[memoryKey]int64
}

// NewMemoryCounter creates an empty in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[memoryKey]int64)}
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(ctx context.Context, key Key) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	k := memoryKey{identifier: key.Identifier, bucket: key.BucketStart.Unix()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[k]++
	return c.counts[k], nil
}

// Count returns the current value for key without changing it.
func (c *MemoryCounter) Count(key Key) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[memoryKey{identifier: key.Identifier, bucket: key.BucketStart.Unix()}]
}

// Len returns the number of live counters.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// Prune implements Pruner.
func (c *MemoryCounter) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.Unix()

	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for k := range c.counts {
		if k.bucket < cutoff {
			delete(c.counts, k)
			removed++
		}
	}
	return removed, nil
}

var (
	_ Counter = (*MemoryCounter)(nil)
	_ Pruner  = (*MemoryCounter)(nil)
)
