// Package cache provides the time-aware entry cache behind the query cache.
//
// # Overview
//
// A single implementation, created with NewTTL or NewFromConfig, stores
// entries together with the time they were stored. Two clocks matter:
//
//   - Retention (TTL): how long the cache keeps an entry at all. Expired
//     entries are misses and are swept by a background goroutine.
//   - Freshness: judged by the caller via Entry.IsStale(after). The query cache
//     uses a different stale-after window per resource kind while sharing one
//     retention TTL.
//
// An optional entry bound (WithMaxEntries / Config.MaxEntries) evicts the
// oldest-stored entry first.
//
// # Usage
//
//	c, err := cache.NewFromConfig[[]byte](ctx, cache.DefaultConfig(),
//	    cache.WithMetrics[[]byte](registry, "query"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if entry, ok := c.Get("campaigns/42"); ok && !entry.IsStale(time.Minute) {
//	    return entry.Value, nil
//	}
//
// # Statistics and Metrics
//
// Statistics are always collected. WithMetrics additionally exports
// campaignpulse_cache_operations_total{cache,op} and campaignpulse_cache_size{cache}.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Eviction callbacks run outside the
// cache lock except during Clear.
package cache
