// Package config loads campaignpulse configuration.
//
// Configuration is resolved in layers: built-in defaults, then each JSON
// file added with AddLayer (later files override earlier ones, field by
// field), then CAMPAIGNPULSE_* environment variables.
//
//	loader := config.NewLoader()
//	loader.AddLayer("campaignpulse.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// Durations in files are strings such as "500ms", "2s" or "1d". Environment
// overrides use the section and field name, e.g. CAMPAIGNPULSE_API_BASE_URL,
// CAMPAIGNPULSE_RETRY_UNIT or CAMPAIGNPULSE_CACHE_STALE_AFTER_INSIGHTS.
//
// Files are read with basic hardening: relative paths must stay within the
// working directory, only .json files are accepted, and size and nesting
// depth are bounded.
//
// A loaded Config converts to the policies the other packages take:
// RetryPolicy for fetch, StreamPolicy for stream, QueryCache for querycache
// and TelemetryConfig for telemetry.
package config
