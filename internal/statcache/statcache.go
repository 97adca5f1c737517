// Package statcache caches the result of resolving a (host, url-path) pair
// to a canonical filesystem path plus its os.Stat result, so a hot file
// under heavy pipelined load does not pay a canonicalise+stat syscall pair
// per request. It never caches file contents, only path/metadata — the
// specification's "no caching of file contents" non-goal binds the file
// bytes, not the syscall results needed to serve them.
//
// Adapted from capacitor/pkg/cache/memory's generic Cache[K,V]: that cache's
// multi-layer DAL, sharding and metrics machinery (capacitor/pkg/capacitor)
// has no counterpart here, so this package keeps only its single-map,
// single-mutex, TTL-expiry shape and drops the rest, concretely typed to the
// one key/value pair this server needs instead of staying generic.
package statcache

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached resolution.
type Key struct {
	Host string
	Path string
}

// Result is the outcome of resolving and stat-ing a path, successful or not.
type Result struct {
	CanonicalPath string
	Info          os.FileInfo
	Err           error
}

type entry struct {
	result    Result
	expiresAt time.Time
}

// Cache is a TTL-bounded, singleflight-coalesced cache of Key -> Result.
type Cache struct {
	ttl time.Duration

	mu   sync.RWMutex
	data map[Key]entry

	group singleflight.Group
}

// New returns a Cache with the given per-entry TTL. A TTL of 0 disables
// caching: every lookup calls fill.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		data: make(map[Key]entry, 256),
	}
}

// Resolve returns the cached Result for key, calling fill on a miss or
// expiry. Concurrent callers for the same key during a miss share one call
// to fill (singleflight), matching the teacher's concern for avoiding
// duplicate work under concurrent access, reworked from lock-striping to
// request coalescing since stat/canonicalise is the expensive operation
// here, not a map write.
func (c *Cache) Resolve(key Key, fill func() Result) Result {
	if c.ttl <= 0 {
		return fill()
	}

	if r, ok := c.lookup(key); ok {
		return r
	}

	v, _, _ := c.group.Do(keyString(key), func() (interface{}, error) {
		if r, ok := c.lookup(key); ok {
			return r, nil
		}
		r := fill()
		c.store(key, r)
		return r, nil
	})
	return v.(Result)
}

func (c *Cache) lookup(key Key) (Result, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return Result{}, false
	}
	if time.Now().After(e.expiresAt) {
		return Result{}, false
	}
	return e.result, true
}

// store records r for key and sweeps out every expired entry, so the map
// only ever holds results stored within the last TTL window.
func (c *Cache) store(key Key, r Result) {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.data[key] = entry{result: r, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes key from the cache, if present.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// keyString gives singleflight.Group a comparable string key.
func keyString(key Key) string {
	return key.Host + "\x00" + key.Path
}
