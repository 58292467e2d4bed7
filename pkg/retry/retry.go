// Package retry provides the bounded retry policy used by the fetch client
package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Budget bounds retries for one failure classification
type Budget struct {
	MaxRetries int           // Additional attempts after the first (0 = never retry)
	Delay      time.Duration // Fixed wait between attempts, or the default when the server declares none
}

// Policy is the explicit retry configuration handed to the fetch client.
// Rate-limit and network failures have independent budgets; every other
// failure is raised to the caller on first sight.
type Policy struct {
	RateLimit       Budget        // 429 responses
	Network         Budget        // No response obtained
	RetryAfterField string        // Body field carrying the server-declared cooldown
	Unit            time.Duration // Length of one retry_after unit
	MaxWait         time.Duration // Upper bound on a server-declared wait (0 = unbounded)
}

// DefaultPolicy returns the interactive-client defaults: two retries for each
// classification, a one second fixed delay, and retry_after read in seconds.
func DefaultPolicy() Policy {
	return Policy{
		RateLimit:       Budget{MaxRetries: 2, Delay: time.Second},
		Network:         Budget{MaxRetries: 2, Delay: time.Second},
		RetryAfterField: "retry_after",
		Unit:            time.Second,
	}
}

// Scaled returns a policy whose delays are expressed in the given unit
// (one unit of default wait and fixed delay). Useful for tests and demos.
func Scaled(unit time.Duration) Policy {
	p := DefaultPolicy()
	p.Unit = unit
	p.RateLimit.Delay = unit
	p.Network.Delay = unit
	return p
}

// WithMaxRetries returns a copy of the policy with both budgets set to n.
func (p Policy) WithMaxRetries(n int) Policy {
	p.RateLimit.MaxRetries = n
	p.Network.MaxRetries = n
	return p
}

// Validate checks the policy for errors
func (p Policy) Validate() error {
	if p.RateLimit.MaxRetries < 0 || p.Network.MaxRetries < 0 {
		return fmt.Errorf("retry: MaxRetries cannot be negative")
	}
	if p.RateLimit.Delay < 0 || p.Network.Delay < 0 {
		return fmt.Errorf("retry: Delay cannot be negative")
	}
	if p.Unit <= 0 {
		return fmt.Errorf("retry: Unit must be positive")
	}
	if p.MaxWait < 0 {
		return fmt.Errorf("retry: MaxWait cannot be negative")
	}
	if strings.TrimSpace(p.RetryAfterField) == "" {
		return fmt.Errorf("retry: RetryAfterField is required")
	}
	return nil
}

// State is the per-request retry bookkeeping. It lives for one logical
// request and is discarded after success or the final failure.
type State struct {
	Attempt int           // 0-based count of retries already made
	Wait    time.Duration // Last computed wait
}

// NextRateLimited decides whether a 429 may be retried. The wait honors the
// server-declared cooldown from payload, falling back to hint (typically the
// Retry-After header) and then to the budget's default delay.
func (p Policy) NextRateLimited(s *State, payload map[string]any, hint time.Duration) (time.Duration, bool) {
	if s.Attempt >= p.RateLimit.MaxRetries {
		return 0, false
	}
	wait, ok := p.RetryAfter(payload)
	if !ok {
		wait = hint
	}
	if wait <= 0 {
		wait = p.RateLimit.Delay
	}
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	s.Wait = wait
	s.Attempt++
	return wait, true
}

// NextNetwork decides whether a request that obtained no response may be
// retried. The wait is always the fixed network delay.
func (p Policy) NextNetwork(s *State) (time.Duration, bool) {
	if s.Attempt >= p.Network.MaxRetries {
		return 0, false
	}
	s.Wait = p.Network.Delay
	s.Attempt++
	return s.Wait, true
}

// RetryAfter reads the server-declared cooldown from a parsed error body.
// Numbers and numeric strings are accepted; anything else reports false.
func (p Policy) RetryAfter(payload map[string]any) (time.Duration, bool) {
	raw, ok := payload[p.RetryAfterField]
	if !ok {
		return 0, false
	}

	var units float64
	switch v := raw.(type) {
	case float64:
		units = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		units = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		units = f
	default:
		return 0, false
	}

	if math.IsNaN(units) || units <= 0 {
		return 0, false
	}
	// Cooldowns beyond the Duration range saturate instead of wrapping negative.
	if ns := units * float64(p.Unit); ns < float64(math.MaxInt64) {
		return time.Duration(ns), true
	}
	if p.MaxWait > 0 {
		return p.MaxWait, true
	}
	return time.Duration(math.MaxInt64), true
}

// Sleep suspends the caller for d, returning early with the context error if
// ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop() // Stop timer immediately when context cancelled
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
