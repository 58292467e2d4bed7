// Package querycache keys campaign query results by resource identity,
// deduplicates concurrent identical reads with singleflight, and tracks
// freshness with a "stale after" window per resource kind.
//
// Keys are "<kind>" or "<kind>/<id>", e.g. "list", "campaign/42",
// "insights/42". Invalidate and InvalidatePrefix drop results by key so the
// next read refetches; Queries.OnUpdate does this for the insights a live
// stream update supersedes.
//
// Results are held in a pkg/cache TTL store, so nothing outlives the
// process.
package querycache
