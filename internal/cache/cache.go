// Package cache provides a namespaced read-through cache for query results.
//
// Entries live in a patrickmn/go-cache store; whether an entry is still
// visible is decided by an injectable Clock so expiry can be tested without
// sleeping. Concurrent misses for the same key share one computation.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // Used for key shortening, not security.
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Namespaces used by the services.
const (
	NamespaceFeed      = "notes_feed"
	NamespaceMedia     = "media_search"
	NamespaceTags      = "tags"
	NamespaceStats     = "stats"
	NamespaceReference = "reference"
)

// maxSignatureLength is the longest signature kept verbatim; longer ones are hashed.
const maxSignatureLength = 100

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Observer receives hit and miss notifications, e.g. for metrics.
type Observer interface {
	CacheHit(namespace string)
	CacheMiss(namespace string)
}

// Stats is a point-in-time summary of cache usage.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a namespaced TTL cache.
type Cache struct {
	items    *gocache.Cache
	clock    Clock
	observer Observer
	group    singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
	epoch       uint64 // bumped by Flush

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for expiry decisions.
func WithClock(c Clock) Option {
	return func(cache *Cache) { cache.clock = c }
}

// WithObserver registers a hit/miss observer.
func WithObserver(o Observer) Option {
	return func(cache *Cache) { cache.observer = o }
}

// New creates a cache. cleanupInterval controls how often expired entries are
// purged from memory; zero disables the background janitor.
func New(cleanupInterval time.Duration, opts ...Option) *Cache {
	c := &Cache{
		items:       gocache.New(gocache.NoExpiration, cleanupInterval),
		clock:       systemClock{},
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func itemKey(namespace, key string) string {
	return namespace + ":" + key
}

// Get returns a live entry.
func (c *Cache) Get(namespace, key string) (any, bool) {
	v, ok := c.items.Get(itemKey(namespace, key))
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if !c.clock.Now().Before(e.expiresAt) {
		c.items.Delete(itemKey(namespace, key))
		return nil, false
	}
	return e.value, true
}

// Set stores value for ttl as measured by the cache clock.
func (c *Cache) Set(namespace, key string, value any, ttl time.Duration) {
	c.items.Set(itemKey(namespace, key), entry{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	}, ttl)
}

// GetOrCompute returns the cached value or computes, stores and returns it.
// Callers waiting on the same key share one call to fn; a caller whose ctx is
// cancelled stops waiting without cancelling the shared computation.
// Errors are not cached.
func (c *Cache) GetOrCompute(ctx context.Context, namespace, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(namespace, key); ok {
		c.recordHit(namespace)
		return v, nil
	}
	c.recordMiss(namespace)

	// A flight started before an invalidation must not be joined after it.
	gen := c.generation(namespace)
	flight := fmt.Sprintf("%s#%d", itemKey(namespace, key), gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// Skip the store if the namespace was invalidated while computing.
		if c.generation(namespace) == gen {
			c.Set(namespace, key, v, ttl)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is the typed form of GetOrCompute.
func Fetch[T any](ctx context.Context, c *Cache, namespace, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, namespace, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every entry in the given namespaces.
func (c *Cache) Invalidate(namespaces ...string) {
	for _, ns := range namespaces {
		c.mu.Lock()
		c.generations[ns]++
		c.mu.Unlock()

		prefix := ns + ":"
		for k := range c.items.Items() {
			if strings.HasPrefix(k, prefix) {
				c.items.Delete(k)
			}
		}
	}
}

// Flush drops everything.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	c.items.Flush()
}

// Stats returns hit/miss counters and the number of stored entries.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.items.ItemCount(),
	}
}

func (c *Cache) generation(namespace string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[namespace] + c.epoch
}

func (c *Cache) recordHit(namespace string) {
	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit(namespace)
	}
}

func (c *Cache) recordMiss(namespace string) {
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss(namespace)
	}
}

// Signature builds a canonical cache key from query parameters: keys sorted,
// values escaped, empty values dropped. Long signatures are replaced by their
// MD5 digest.
func Signature(params map[string]string) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	sig := values.Encode()
	if sig == "" {
		return "all"
	}
	if len(sig) > maxSignatureLength {
		sum := md5.Sum([]byte(sig)) //nolint:gosec // Key shortening only.
		return hex.EncodeToString(sum[:])
	}
	return sig
}
