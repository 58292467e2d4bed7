package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the client-level metrics shared by the fetch client and
// the stream manager
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetryWait       *prometheus.HistogramVec

	// Stream metrics
	StreamsOpen       prometheus.Gauge
	StreamConnects    prometheus.Counter
	StreamReconnects  prometheus.Counter
	StreamFailures    prometheus.Counter
	StreamEventsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Logical requests by resource and outcome (ok or failure class)",
			},
			[]string{"resource", "outcome"},
		),

		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "fetch",
				Name:      "attempts_total",
				Help:      "HTTP attempts issued, including retries",
			},
			[]string{"resource"},
		),

		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "fetch",
				Name:      "retries_total",
				Help:      "Retries scheduled by reason (rate_limited, network)",
			},
			[]string{"resource", "reason"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campaignpulse",
				Subsystem: "fetch",
				Name:      "request_duration_seconds",
				Help:      "Logical request duration including retry waits",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),

		RetryWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campaignpulse",
				Subsystem: "fetch",
				Name:      "retry_wait_seconds",
				Help:      "Time spent waiting before a retry",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"reason"},
		),

		StreamsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "campaignpulse",
				Subsystem: "stream",
				Name:      "open",
				Help:      "Currently open live insight connections",
			},
		),

		StreamConnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "stream",
				Name:      "connects_total",
				Help:      "Live insight connections opened",
			},
		),

		StreamReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "stream",
				Name:      "reconnects_total",
				Help:      "Automatic reconnections after a terminal stream error",
			},
		),

		StreamFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "stream",
				Name:      "failures_total",
				Help:      "Subscriptions that exhausted their reconnect budget",
			},
		),

		StreamEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaignpulse",
				Subsystem: "stream",
				Name:      "events_total",
				Help:      "Stream events by outcome (delivered, dropped)",
			},
			[]string{"outcome"},
		),
	}
}

// collectors lists every core metric for registration
func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.RequestsTotal,
		c.AttemptsTotal,
		c.RetriesTotal,
		c.RequestDuration,
		c.RetryWait,
		c.StreamsOpen,
		c.StreamConnects,
		c.StreamReconnects,
		c.StreamFailures,
		c.StreamEventsTotal,
	}
}

// RecordAttempt increments the attempt counter for a resource
func (c *Metrics) RecordAttempt(resource string) {
	c.AttemptsTotal.WithLabelValues(resource).Inc()
}

// RecordRetry records a scheduled retry and its wait
func (c *Metrics) RecordRetry(resource, reason string, wait time.Duration) {
	c.RetriesTotal.WithLabelValues(resource, reason).Inc()
	c.RetryWait.WithLabelValues(reason).Observe(wait.Seconds())
}

// RecordRequest records the outcome and duration of a logical request
func (c *Metrics) RecordRequest(resource, outcome string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(resource, outcome).Inc()
	c.RequestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordStreamOpened increments open connection gauge and connect counter
func (c *Metrics) RecordStreamOpened(reconnect bool) {
	c.StreamsOpen.Inc()
	c.StreamConnects.Inc()
	if reconnect {
		c.StreamReconnects.Inc()
	}
}

// RecordStreamClosed decrements the open connection gauge
func (c *Metrics) RecordStreamClosed() {
	c.StreamsOpen.Dec()
}

// RecordStreamFailed increments the exhausted-subscription counter
func (c *Metrics) RecordStreamFailed() {
	c.StreamFailures.Inc()
}

// RecordStreamEvent counts a delivered or dropped stream event
func (c *Metrics) RecordStreamEvent(delivered bool) {
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	c.StreamEventsTotal.WithLabelValues(outcome).Inc()
}
