// Package fetch provides the resilient HTTP client for the campaign API.
//
// # Overview
//
// Client.Do issues one logical request and applies a bounded retry policy
// (pkg/retry) before giving up:
//
//   - 429 responses are retried after the server-declared cooldown, read from
//     the JSON body field "retry_after" (in policy units), then the Retry-After
//     header, then the default delay
//   - network failures (no response) are retried after a fixed delay
//   - every other non-success status is returned on first sight
//   - a cancelled context stops the loop immediately and is never retried
//
// Both budgets share one attempt counter, so a request makes at most
// MaxRetries+1 attempts. Everything returned as an error is a *errors.Failure.
//
// # Usage
//
//	client, err := fetch.NewClient("https://api.example.com",
//	    fetch.WithPolicy(retry.DefaultPolicy()),
//	    fetch.WithLogger(logger),
//	    fetch.WithMetrics(registry),
//	)
//
//	list, err := fetch.DoJSON[campaigns.ListResponse](ctx, client, fetch.Request{Path: "/campaigns"})
//
// # Request identity
//
// Each logical request gets a UUID sent as X-Request-ID. Retries reuse it so
// server logs can group the attempts of one call.
//
// # Success bodies
//
// A 2xx body is validated as JSON. A body that cannot be read or parsed is a
// ClassDecode failure and is not retried. An empty body is a success with no
// content.
package fetch
