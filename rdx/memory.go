package rdx

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache is the in-process Cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
	gens    map[string]int64
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{ttl: DetailsTTL, now: time.Now, entries: make(map[string]memoryEntry), gens: make(map[string]int64)}
}

func (c *MemoryCache) Get(_ context.Context, email string, v any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[detailsKey(email)]
	if ok && !c.now().Before(e.expires) {
		delete(c.entries, detailsKey(email))
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(e.raw, v)
}

func (c *MemoryCache) Generation(_ context.Context, email string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[email], nil
}

func (c *MemoryCache) Set(_ context.Context, email string, gen int64, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[email] != gen {
		return nil
	}
	c.entries[detailsKey(email)] = memoryEntry{raw: raw, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, email string) error {
	c.mu.Lock()
	c.gens[email]++
	delete(c.entries, detailsKey(email))
	c.mu.Unlock()
	return nil
}
