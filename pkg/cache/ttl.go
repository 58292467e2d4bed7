package cache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/c360/campaignpulse/errors"
)

// ttlCache is a thread-safe cache that retains entries for a fixed TTL and,
// when bounded, evicts the oldest-stored entry first.
type ttlCache[V any] struct {
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	maxEntries      int
	items           map[string]*list.Element // value is *Entry[V]
	order           *list.List               // front = oldest store
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]
	now             func() time.Time

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTTL creates a cache retaining entries for ttl, sweeping expired entries
// every cleanupInterval until ctx is done or Close is called.
func NewTTL[V any](ctx context.Context, ttl, cleanupInterval time.Duration, options ...Option[V]) (Cache[V], error) {
	if ttl <= 0 || cleanupInterval <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewTTL",
			fmt.Sprintf("ttl and cleanup interval must be positive (ttl=%v, cleanup=%v)", ttl, cleanupInterval))
	}
	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "cache", "NewTTL", "metrics registration")
		}
	}

	c := &ttlCache[V]{
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		maxEntries:      opts.maxEntries,
		items:           make(map[string]*list.Element),
		order:           list.New(),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		now:             opts.now,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.cleanup(ctx)

	return c, nil
}

// Get retrieves an entry by key, treating expired entries as misses.
func (c *ttlCache[V]) Get(key string) (Entry[V], bool) {
	now := c.now()

	c.mu.RLock()
	elem, exists := c.items[key]
	var entry Entry[V]
	if exists {
		entry = *elem.Value.(*Entry[V])
	}
	c.mu.RUnlock()

	if exists && entry.isExpired(now) {
		c.mu.Lock()
		// Double-check it's still there and still expired
		if current, ok := c.items[key]; ok && current.Value.(*Entry[V]).isExpired(now) {
			c.removeLocked(current)
			c.recordEviction()
			if c.evictFn != nil {
				defer c.evictFn(key, current.Value.(*Entry[V]).Value)
			}
		}
		c.mu.Unlock()
		exists = false
	}

	if !exists {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return Entry[V]{}, false
	}

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return entry, true
}

// Set stores a value, refreshing its storage time.
func (c *ttlCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	now := c.now()
	entry := &Entry[V]{Key: key, Value: value, StoredAt: now, ExpiresAt: now.Add(c.ttl)}

	var evicted []*Entry[V]

	c.mu.Lock()
	elem, exists := c.items[key]
	if exists {
		elem.Value = entry
		c.order.MoveToBack(elem)
	} else {
		c.items[key] = c.order.PushBack(entry)
		for c.maxEntries > 0 && len(c.items) > c.maxEntries {
			oldest := c.order.Front()
			evicted = append(evicted, oldest.Value.(*Entry[V]))
			c.removeLocked(oldest)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	for _, e := range evicted {
		c.recordEviction()
		if c.evictFn != nil {
			c.evictFn(e.Key, e.Value)
		}
	}

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}

	return !exists, nil
}

// Delete removes an entry by key.
func (c *ttlCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	elem, exists := c.items[key]
	if exists {
		c.removeLocked(elem)
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		if c.evictFn != nil {
			c.evictFn(key, elem.Value.(*Entry[V]).Value)
		}
		c.stats.Delete()
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.recordDelete()
			c.metrics.updateSize(size)
		}
	}

	return exists, nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *ttlCache[V]) DeletePrefix(prefix string) int {
	var removed []*Entry[V]

	c.mu.Lock()
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			removed = append(removed, elem.Value.(*Entry[V]))
			c.removeLocked(elem)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	for _, e := range removed {
		if c.evictFn != nil {
			c.evictFn(e.Key, e.Value)
		}
		c.stats.Delete()
		if c.metrics != nil {
			c.metrics.recordDelete()
		}
	}
	if len(removed) > 0 {
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.updateSize(size)
		}
	}
	return len(removed)
}

// Clear removes all entries from the cache.
func (c *ttlCache[V]) Clear() error {
	c.mu.Lock()
	if c.evictFn != nil {
		for e := c.order.Front(); e != nil; e = e.Next() {
			entry := e.Value.(*Entry[V])
			c.evictFn(entry.Key, entry.Value)
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	return nil
}

// Size returns the current number of entries, including expired entries not yet swept.
func (c *ttlCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns all live keys, oldest first.
func (c *ttlCache[V]) Keys() []string {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for e := c.order.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry[V])
		if !entry.isExpired(now) {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *ttlCache[V]) Stats() *Statistics {
	return c.stats
}

// Close shuts down the cache and stops the background cleanup goroutine.
func (c *ttlCache[V]) Close() error {
	c.closeOnce.Do(func() { close(c.shutdown) })

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cleanup goroutine to finish")
	}
}

// removeLocked unlinks an element; caller holds c.mu.
func (c *ttlCache[V]) removeLocked(elem *list.Element) {
	delete(c.items, elem.Value.(*Entry[V]).Key)
	c.order.Remove(elem)
}

func (c *ttlCache[V]) recordEviction() {
	c.stats.Eviction()
	if c.metrics != nil {
		c.metrics.recordEviction()
	}
}

// cleanup periodically removes expired entries.
func (c *ttlCache[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *ttlCache[V]) removeExpired() {
	now := c.now()
	var expired []*Entry[V]

	c.mu.Lock()
	for e := c.order.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*Entry[V])
		if entry.isExpired(now) {
			expired = append(expired, entry)
			c.removeLocked(e)
		}
		e = next
	}
	size := len(c.items)
	c.mu.Unlock()

	// Call OnEvict callbacks outside the lock
	for _, entry := range expired {
		c.recordEviction()
		if c.evictFn != nil {
			c.evictFn(entry.Key, entry.Value)
		}
	}
	if len(expired) > 0 {
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.updateSize(size)
		}
	}
}
