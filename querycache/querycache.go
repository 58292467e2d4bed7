package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/metric"
	"github.com/c360/campaignpulse/pkg/cache"
)

// Kind is a resource kind with its own freshness window.
type Kind string

// Resource kinds
const (
	KindList      Kind = "list"
	KindCampaign  Kind = "campaign"
	KindAggregate Kind = "aggregate"
	KindInsights  Kind = "insights"
)

// StaleAfter holds the freshness window of each resource kind. A cached
// result older than its window is refetched on the next read.
type StaleAfter struct {
	List      time.Duration
	Campaign  time.Duration
	Aggregate time.Duration
	Insights  time.Duration
}

// DefaultStaleAfter returns the dashboard defaults.
func DefaultStaleAfter() StaleAfter {
	return StaleAfter{
		List:      30 * time.Second,
		Campaign:  60 * time.Second,
		Aggregate: 30 * time.Second,
		Insights:  15 * time.Second,
	}
}

// For returns the window for kind; unknown kinds are always stale.
func (s StaleAfter) For(kind Kind) time.Duration {
	switch kind {
	case KindList:
		return s.List
	case KindCampaign:
		return s.Campaign
	case KindAggregate:
		return s.Aggregate
	case KindInsights:
		return s.Insights
	default:
		return 0
	}
}

// Validate checks the windows for errors
func (s StaleAfter) Validate() error {
	for _, kind := range []Kind{KindList, KindCampaign, KindAggregate, KindInsights} {
		if s.For(kind) < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "querycache", "Validate",
				fmt.Sprintf("stale_after for %s cannot be negative", kind))
		}
	}
	return nil
}

// Config configures a Cache.
type Config struct {
	Store      cache.Config
	StaleAfter StaleAfter
}

// DefaultConfig returns the default query cache configuration.
func DefaultConfig() Config {
	return Config{Store: cache.DefaultConfig(), StaleAfter: DefaultStaleAfter()}
}

// Key identifies a cached result by resource kind and identity.
func Key(kind Kind, id string) string {
	if id == "" {
		return string(kind)
	}
	return string(kind) + "/" + id
}

// Cache deduplicates concurrent identical reads and keeps results until
// their kind's freshness window passes or they are invalidated.
type Cache struct {
	store      cache.Cache[any]
	group      singleflight.Group
	staleAfter StaleAfter
	logger     *slog.Logger
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports store statistics under the "querycache" prefix.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// New creates a Cache. The store's background cleanup stops when ctx is
// done or Close is called.
func New(ctx context.Context, cfg Config, opts ...Option) (*Cache, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.StaleAfter.Validate(); err != nil {
		return nil, err
	}

	var storeOpts []cache.Option[any]
	if o.registry != nil {
		storeOpts = append(storeOpts, cache.WithMetrics[any](o.registry, "querycache"))
	}
	store, err := cache.NewFromConfig[any](ctx, cfg.Store, storeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Cache", "New", "create store")
	}

	return &Cache{
		store:      store,
		staleAfter: cfg.StaleAfter,
		logger:     o.logger.With("component", "querycache"),
	}, nil
}

// Fetch returns the cached result for key when it is fresh, and otherwise
// runs load once for all concurrent callers of the same key. The shared
// load runs on a context the cache owns, detached from any one caller's
// cancellation; each caller stops waiting when its own ctx is done.
// Failed loads are not cached.
func Fetch[T any](ctx context.Context, c *Cache, kind Kind, key string,
	load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if entry, ok := c.store.Get(key); ok && !entry.IsStale(c.staleAfter.For(kind)) {
		if v, ok := entry.Value.(T); ok {
			return v, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return zero, errors.NewCancelled(err, "querycache", "Fetch")
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(shared)
		if err != nil {
			return nil, err
		}
		if _, err := c.store.Set(key, v); err != nil {
			c.logger.Warn("failed to cache result", "key", key, "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, errors.NewCancelled(ctx.Err(), "querycache", "Fetch")
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight load", "key", key)
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, errors.Wrap(fmt.Errorf("cached %T for %s", res.Val, key), "Cache", "Fetch", "type check")
		}
		return v, nil
	}
}

// Invalidate drops the cached result for key. The next read refetches.
func (c *Cache) Invalidate(key string) bool {
	ok, _ := c.store.Delete(key)
	c.group.Forget(key)
	return ok
}

// InvalidatePrefix drops every result whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	for _, key := range c.store.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.group.Forget(key)
		}
	}
	return c.store.DeletePrefix(prefix)
}

// Clear drops every cached result.
func (c *Cache) Clear() error {
	return c.store.Clear()
}

// Stats returns store statistics, nil when caching is disabled.
func (c *Cache) Stats() *cache.Statistics {
	return c.store.Stats()
}

// Close stops background cleanup.
func (c *Cache) Close() error {
	return c.store.Close()
}
