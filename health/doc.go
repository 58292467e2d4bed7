// Package health reports the health of live insight subscriptions.
//
// A Monitor records one Status per subscription, usually fed by passing
// Monitor.Observe as a stream.OnStatus observer:
//
//	monitor := health.NewMonitor()
//	h, err := mgr.Subscribe(onUpdate, stream.OnStatus(monitor.Observe("insights/42")))
//
// Subscription states map to health as follows:
//
//	idle, open     healthy
//	reconnecting   degraded
//	failed         unhealthy
//
// AggregateHealth reports the worst sub-status, and Monitor.Handler serves it
// as JSON, answering 503 once any subscription has failed. Error text in
// messages is sanitized: URLs, file paths, IP addresses, ports and
// credentials are replaced with placeholders.
package health
