package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryTokenCache is the reference TokenCache: a mutex-guarded map with
// clone-on-read semantics. Production deployments plug in their own store.
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: map[string]CacheEntry{},
	}
}

func (c *MemoryTokenCache) Read(_ context.Context, key string) (CacheEntry, bool, error) {
	if c == nil {
		return CacheEntry{}, false, fmt.Errorf("core: token cache is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return CacheEntry{}, false, fmt.Errorf("core: token cache key is required")
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return CacheEntry{}, false, nil
	}
	return cloneCacheEntry(entry), true, nil
}

func (c *MemoryTokenCache) Write(_ context.Context, entry CacheEntry) error {
	if c == nil {
		return fmt.Errorf("core: token cache is not configured")
	}
	key := strings.TrimSpace(entry.Key)
	if key == "" {
		return fmt.Errorf("core: token cache key is required")
	}
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now().UTC()
	}

	c.mu.Lock()
	c.entries[key] = cloneCacheEntry(entry)
	c.mu.Unlock()

	return nil
}

func (c *MemoryTokenCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneCacheEntry(entry CacheEntry) CacheEntry {
	cloned := entry
	cloned.Scopes = append([]string(nil), entry.Scopes...)
	cloned.Result = CloneAuthenticationResult(entry.Result)
	return cloned
}

var _ TokenCache = (*MemoryTokenCache)(nil)
