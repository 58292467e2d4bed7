// Package campaignpulse is a client for a campaign KPI API: resilient
// request/response reads and live insight streams.
//
// The packages form three layers:
//
// Transport:
//   - fetch: HTTP client with per-classification retry budgets, server-declared
//     rate-limit cooldowns and one typed failure shape
//   - stream: per-subscription manager for server-sent insight streams with
//     bounded reconnection
//
// Resources:
//   - campaigns: list, get, aggregate and per-campaign insights, plus in-memory
//     filter and sort helpers
//   - querycache: keyed, de-duplicated, freshness-aware cache in front of the
//     resource calls
//
// Infrastructure:
//   - errors: the Failure type and its classifications
//   - config: layered JSON and environment configuration
//   - metric, health, telemetry: Prometheus metrics, subscription health and
//     OpenTelemetry tracing
//   - pkg/retry, pkg/cache, pkg/tlsutil: retry policy, TTL cache and API TLS
//
// The campaignpulse command in cmd/campaignpulse wires all of it together.
//
// Every failure surfaced to callers is an *errors.Failure; branch on its
// class rather than on error text:
//
//	c, err := svc.Get(ctx, "42")
//	switch {
//	case errors.IsNotFound(err):
//	    // show "not found"
//	case err != nil:
//	    class, _ := errors.ClassOf(err)
//	    ...
//	}
package campaignpulse
