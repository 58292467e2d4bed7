// Package errors provides the failure taxonomy shared by the campaign API client,
// the query cache and the live stream manager. Every failure surfaced to a caller
// is a *Failure carrying the same fixed fields, distinguished by Class and Status.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class is the closed set of failure classifications callers branch on.
type Class int

const (
	// ClassRateLimited is a 429 response after the rate-limit retry budget was spent
	ClassRateLimited Class = iota
	// ClassClientError is any other non-success response below 500
	ClassClientError
	// ClassServerError is a 5xx response
	ClassServerError
	// ClassNetwork is a failure where no response was obtained, after retries
	ClassNetwork
	// ClassCancelled means the caller's context was cancelled; never retried
	ClassCancelled
	// ClassDecode is a success response whose body could not be parsed
	ClassDecode
	// ClassInvalid covers local validation of configuration or arguments
	ClassInvalid
)

// String returns the string representation of Class
func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	case ClassNetwork:
		return "network"
	case ClassCancelled:
		return "cancelled"
	case ClassDecode:
		return "decode"
	case ClassInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Request and response errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRateLimited     = errors.New("rate limited")
	ErrNotFound        = errors.New("not found")
	ErrParsingFailed   = errors.New("parsing failed")
	ErrUnexpectedHTTP  = errors.New("unexpected http status")

	// Stream errors
	ErrConnectionLost     = errors.New("connection lost")
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrMalformedEvent     = errors.New("malformed event")
)

// Failure is the single typed failure raised by the fetch client. Status is 0
// when no HTTP response was obtained. Payload holds the best-effort parsed error
// body and is never nil for HTTP failures.
type Failure struct {
	Class     Class
	Status    int
	Payload   map[string]any
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (f *Failure) Error() string {
	prefix := f.Component
	if f.Operation != "" {
		prefix = fmt.Sprintf("%s.%s", f.Component, f.Operation)
	}
	switch {
	case f.Status != 0 && f.Err != nil:
		return fmt.Sprintf("%s: %s (status %d): %v", prefix, f.Class, f.Status, f.Err)
	case f.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", prefix, f.Class, f.Status)
	case f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, f.Class, f.Err)
	default:
		return fmt.Sprintf("%s: %s", prefix, f.Class)
	}
}

// Unwrap returns the underlying error
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is lets callers match the classification sentinels with errors.Is.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return f.Class == ClassRateLimited
	case ErrNotFound:
		return f.Status == http.StatusNotFound
	}
	return false
}

// ClassifyStatus maps a non-success HTTP status to its failure class. A 429
// only reaches the caller once its retry budget is exhausted.
func ClassifyStatus(status int) Class {
	switch {
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500:
		return ClassServerError
	default:
		return ClassClientError
	}
}

// NewStatus builds a failure for a non-success HTTP response.
func NewStatus(status int, payload map[string]any, component, operation string) *Failure {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Failure{
		Class:     ClassifyStatus(status),
		Status:    status,
		Payload:   payload,
		Err:       fmt.Errorf("%w: %d %s", ErrUnexpectedHTTP, status, http.StatusText(status)),
		Component: component,
		Operation: operation,
	}
}

// NewNetwork builds a failure for a request that obtained no response.
func NewNetwork(err error, component, operation string) *Failure {
	return &Failure{Class: ClassNetwork, Err: err, Component: component, Operation: operation}
}

// NewCancelled builds a failure for a request aborted by its caller.
func NewCancelled(err error, component, operation string) *Failure {
	if err == nil {
		err = context.Canceled
	}
	return &Failure{Class: ClassCancelled, Err: err, Component: component, Operation: operation}
}

// NewDecode builds a failure for a success body that could not be parsed.
func NewDecode(status int, err error, component, operation string) *Failure {
	return &Failure{
		Class:     ClassDecode,
		Status:    status,
		Err:       fmt.Errorf("%w: %v", ErrParsingFailed, err),
		Component: component,
		Operation: operation,
	}
}

// AsFailure extracts the *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ClassOf returns the classification of err. The second result is false when
// err carries no Failure.
func ClassOf(err error) (Class, bool) {
	if f, ok := AsFailure(err); ok {
		return f.Class, true
	}
	return 0, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if f, ok := AsFailure(err); ok {
		return f.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 failure.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsCancelled reports whether err was caused by caller cancellation.
func IsCancelled(err error) bool {
	if c, ok := ClassOf(err); ok {
		return c == ClassCancelled
	}
	return errors.Is(err, context.Canceled)
}

// UserMessage maps a failure to the text a dashboard shows next to a retry control.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not found"
	case errors.Is(err, ErrConnectionLost):
		return "connection lost"
	default:
		return "something went wrong, please retry"
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as an invalid-input failure with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &Failure{
		Class:     ClassInvalid,
		Err:       Wrap(err, component, method, action),
		Component: component,
		Operation: method,
	}
}

// IsInvalid checks if an error is due to invalid input or configuration
func IsInvalid(err error) bool {
	if c, ok := ClassOf(err); ok {
		return c == ClassInvalid
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrInvalidArgument)
}
