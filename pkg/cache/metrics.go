package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/campaignpulse/metric"
)

// cacheMetrics holds Prometheus metrics for cache operations.
type cacheMetrics struct {
	ops  *prometheus.CounterVec
	size prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "campaignpulse",
			Subsystem:   "cache",
			Name:        "operations_total",
			ConstLabels: prometheus.Labels{"cache": prefix},
			Help:        "Cache operations by kind (hit, miss, set, delete, eviction)",
		}, []string{"op"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "campaignpulse",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: prometheus.Labels{"cache": prefix},
			Help:        "Current number of entries in cache",
		}),
	}

	if err := registry.RegisterCounterVec(prefix, "cache_operations", m.ops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "cache_size", m.size); err != nil {
		registry.Unregister(prefix, "cache_operations")
		return nil, err
	}

	return m, nil
}

func (m *cacheMetrics) recordHit()      { m.ops.WithLabelValues("hit").Inc() }
func (m *cacheMetrics) recordMiss()     { m.ops.WithLabelValues("miss").Inc() }
func (m *cacheMetrics) recordSet()      { m.ops.WithLabelValues("set").Inc() }
func (m *cacheMetrics) recordDelete()   { m.ops.WithLabelValues("delete").Inc() }
func (m *cacheMetrics) recordEviction() { m.ops.WithLabelValues("eviction").Inc() }

// updateSize sets the current cache size.
func (m *cacheMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}
