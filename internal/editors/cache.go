package editors

import (
	"sync"
	"time"
)

const binaryCacheTTL = 5 * time.Minute

// binaryCache is the per-manager "{value, expiry}" cell from spec.md §5:
// a short-held lock around a single cached discovery result, invalidated
// either by TTL expiry or explicitly after a launch failure so the next
// attempt re-discovers rather than retrying a stale path.
type binaryCache struct {
	mu         sync.Mutex
	path       string
	discovered time.Time
	valid      bool
}

// get returns the cached path if present and younger than the TTL.
func (c *binaryCache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || now.Sub(c.discovered) > binaryCacheTTL {
		return "", false
	}
	return c.path, true
}

// set stores a freshly discovered path.
func (c *binaryCache) set(path string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
	c.discovered = now
	c.valid = true
}

// invalidate clears the cache, forcing the next FindBinary call to
// rediscover. Called after a launch failure per spec.md §4.6's JetBrains
// retry rule, and applied uniformly across all families.
func (c *binaryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
