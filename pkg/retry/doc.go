// Package retry provides the bounded retry policy for interactive API calls.
//
// # Overview
//
// A Policy carries two independent budgets:
//
//   - RateLimit: applied to HTTP 429. The wait honors the server-declared
//     cooldown (body field "retry_after", in Unit), defaulting to one unit.
//   - Network: applied when no response was obtained. The wait is a fixed
//     short delay; there is no body to consult.
//
// Budgets are small (two retries by default) because the caller is a user
// waiting on a screen. Everything else is raised on first sight.
//
// # Usage
//
//	policy := retry.DefaultPolicy()
//	var state retry.State
//	for {
//	    resp, err := send()
//	    if isNetwork(err) {
//	        wait, ok := policy.NextNetwork(&state)
//	        if !ok {
//	            return err
//	        }
//	        if err := retry.Sleep(ctx, wait); err != nil {
//	            return err
//	        }
//	        continue
//	    }
//	    ...
//	}
//
// # State
//
// State is owned by exactly one logical request. Two concurrent requests never
// share a State, so the package needs no locking.
//
// # Context Cancellation
//
// Sleep returns as soon as the context is cancelled, so a cancelled caller is
// never held for the remainder of a cooldown.
package retry
