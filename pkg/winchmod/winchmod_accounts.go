package winchmod

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// accountCache memoizes principal-identity to display-name lookups. The
// mapping never changes while the tool runs, so caching it across a recursive
// walk is safe even though object permission state is always re-queried.
type accountCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newAccountCache() *accountCache {
	return &accountCache{cache: lru.New(256)}
}

func (c *accountCache) lookup(key string, resolve func(string) (string, error)) (string, error) {
	c.mu.Lock()
	if v, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return v.(string), nil
	}
	c.mu.Unlock()

	name, err := resolve(key)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache.Add(key, name)
	c.mu.Unlock()
	return name, nil
}
