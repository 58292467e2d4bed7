package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/metric"
	"github.com/c360/campaignpulse/pkg/retry"
)

const (
	component  = "fetch"
	tracerName = "github.com/c360/campaignpulse/fetch"

	// RequestIDHeader carries the logical request id; it is identical on every attempt.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 1 << 20
)

// Client issues JSON requests against a base URL with bounded retries.
// A Client is safe for concurrent use; each call owns its own retry state.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	policy  retry.Policy
	header  http.Header
	logger  *slog.Logger
	metrics *metric.Metrics
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "NewClient", "parse base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "NewClient",
			fmt.Sprintf("base URL scheme must be http or https, got %q", u.Scheme))
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		policy:  retry.DefaultPolicy(),
		header:  make(http.Header),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.policy.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "NewClient", "validate retry policy")
	}
	return c, nil
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Policy returns the client's retry policy.
func (c *Client) Policy() retry.Policy {
	return c.policy
}

// URL resolves an escaped path and optional query against the base URL.
// The path is appended to the base path as is; dot segments are not
// resolved, so an escaped id can never address a different resource.
func (c *Client) URL(path string, query url.Values) string {
	var u *url.URL
	if abs, err := url.Parse(path); err == nil && abs.IsAbs() {
		u = abs
	} else {
		u = c.resolve(path)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) resolve(path string) *url.URL {
	u := *c.baseURL
	raw := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimPrefix(path, "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = decoded, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}
	return &u
}

// NewRequest builds an *http.Request carrying the client's default headers.
// The stream source uses it so live connections share auth and identity headers.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, nil), body)
	if err != nil {
		return nil, err
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

// Do executes req, retrying 429 responses (honoring the server's declared
// cooldown) and network failures (fixed delay) within the policy budgets.
// Any other outcome is returned on first sight. Every error returned is a
// *errors.Failure.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resource := req.resource()
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "fetch "+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method()),
			attribute.String("campaignpulse.resource", resource),
			attribute.String("campaignpulse.request_id", requestID),
		))
	defer span.End()

	resp, err := c.do(ctx, req, resource, requestID, span)

	outcome := "ok"
	if err != nil {
		if f, ok := errors.AsFailure(err); ok {
			outcome = f.Class.String()
			if f.Status != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", f.Status))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(
			attribute.Int("http.response.status_code", resp.Status),
			attribute.Int("campaignpulse.attempts", resp.Attempts),
		)
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(resource, outcome, time.Since(start))
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, req Request, resource, requestID string, span trace.Span) (*Response, error) {
	policy := c.policy
	if req.MaxRetries != nil {
		policy = policy.WithMaxRetries(*req.MaxRetries)
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Do", "encode request body")
	}

	var state retry.State
	for {
		attempt := state.Attempt + 1

		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled(err, component, "Do")
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errors.NewCancelled(err, component, "Do")
			}
		}

		if c.metrics != nil {
			c.metrics.RecordAttempt(resource)
		}
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))

		httpResp, err := c.send(ctx, req, body, requestID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.NewCancelled(ctxErr, component, "Do")
			}
			wait, ok := policy.NextNetwork(&state)
			if !ok {
				c.logger.Warn("request failed, no response",
					"resource", resource, "attempts", attempt, "request_id", requestID, "error", err)
				return nil, errors.NewNetwork(err, component, "Do")
			}
			if err := c.backoff(ctx, resource, "network", attempt, wait, requestID, err); err != nil {
				return nil, err
			}
			continue
		}

		if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
			return c.readSuccess(ctx, httpResp, attempt, requestID)
		}

		payload := readErrorPayload(httpResp)
		if httpResp.StatusCode == http.StatusTooManyRequests {
			hint := parseRetryAfterHeader(httpResp.Header.Get("Retry-After"), time.Now())
			if wait, ok := policy.NextRateLimited(&state, payload, hint); ok {
				if err := c.backoff(ctx, resource, "rate_limited", attempt, wait, requestID, nil); err != nil {
					return nil, err
				}
				continue
			}
		}

		failure := errors.NewStatus(httpResp.StatusCode, payload, component, "Do")
		c.logger.Debug("request failed",
			"resource", resource, "status", httpResp.StatusCode, "class", failure.Class.String(),
			"attempts", attempt, "request_id", requestID)
		return nil, failure
	}
}

// backoff logs and records a scheduled retry, then waits for it.
func (c *Client) backoff(ctx context.Context, resource, reason string, attempt int,
	wait time.Duration, requestID string, cause error) error {
	c.logger.Debug("retrying request",
		"resource", resource, "reason", reason, "attempt", attempt,
		"wait", wait, "request_id", requestID, "error", cause)
	if c.metrics != nil {
		c.metrics.RecordRetry(resource, reason, wait)
	}
	if err := retry.Sleep(ctx, wait); err != nil {
		return errors.NewCancelled(err, component, "Do")
	}
	return nil
}

// send issues a single attempt.
func (c *Client) send(ctx context.Context, req Request, body []byte, requestID string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), c.URL(req.Path, req.Query), reader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set(RequestIDHeader, requestID)

	return c.http.Do(httpReq)
}

// readSuccess reads and validates a 2xx body. A body that cannot be read or
// parsed is a hard failure and is not retried.
func (c *Client) readSuccess(ctx context.Context, resp *http.Response, attempts int, requestID string) (*Response, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewCancelled(ctxErr, component, "Do")
		}
		return nil, errors.NewDecode(resp.StatusCode, err, component, "Do")
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && !json.Valid(data) {
		return nil, errors.NewDecode(resp.StatusCode, fmt.Errorf("response body is not valid JSON"), component, "Do")
	}

	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      json.RawMessage(data),
		Attempts:  attempts,
		RequestID: requestID,
	}, nil
}

// readErrorPayload parses a non-success body best-effort. A body that is
// missing, unreadable or not a JSON object yields an empty payload so the
// status-based failure is never masked.
func readErrorPayload(resp *http.Response) map[string]any {
	defer resp.Body.Close()

	payload := map[string]any{}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return payload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil || parsed == nil {
		return payload
	}
	return parsed
}

// parseRetryAfterHeader reads a Retry-After header in delta-seconds or HTTP-date form.
func parseRetryAfterHeader(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// DoJSON executes req and decodes the body into T. An empty body yields the
// zero value; a body that does not fit T is a ClassDecode failure.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, errors.NewDecode(resp.Status, err, component, "DoJSON")
	}
	return out, nil
}
