// Package metric provides Prometheus-based metrics collection and an HTTP
// endpoint for the campaignpulse client.
//
// The registry owns a private prometheus.Registry with the core client
// metrics (fetch attempts, retries by reason, request outcomes by failure
// class, stream connections and reconnects) plus Go runtime collectors.
// Components register additional collectors through MetricsRegistrar; the
// query cache does this for its hit/miss counters.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(ctx); err != nil {
//	        slog.Error("metrics server failed", "error", err)
//	    }
//	}()
//
//	client, _ := fetch.NewClient(baseURL, fetch.WithMetrics(registry))
//
// # Core Metrics
//
//	campaignpulse_fetch_requests_total{resource,outcome}
//	campaignpulse_fetch_attempts_total{resource}
//	campaignpulse_fetch_retries_total{resource,reason}
//	campaignpulse_fetch_request_duration_seconds{resource}
//	campaignpulse_fetch_retry_wait_seconds{reason}
//	campaignpulse_stream_open
//	campaignpulse_stream_connects_total
//	campaignpulse_stream_reconnects_total
//	campaignpulse_stream_failures_total
//	campaignpulse_stream_events_total{outcome}
//
// # Custom Metrics
//
// Registration is keyed by "service.metric"; registering the same key twice
// returns a ClassInvalid failure rather than panicking.
package metric
