package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/stream"
)

// Health states, ordered from best to worst.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Pre-compiled regexes for error message sanitization
var (
	httpURLRegex    = regexp.MustCompile(`https?://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|bearer|secret)[^a-zA-Z]*[:=\s][^,\s}]+`)
)

// Status is the health of one subscription, or of the whole process when
// it carries sub-statuses.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries the counters behind a subscription's health.
type Metrics struct {
	Attempts     int       `json:"attempts"`
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StateUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy with sub appended. The receiver's slice is
// never shared with the copy.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// FromStream maps a live subscription's status onto a health status.
// Idle and open subscriptions are healthy, a reconnecting one is degraded,
// and a failed one is unhealthy. Error text is sanitized so URLs and
// credentials never reach the health endpoint.
func FromStream(name string, st stream.Status) Status {
	var out Status
	switch st.State {
	case stream.StateOpen:
		out = NewHealthy(name, "streaming "+st.EntityID)
	case stream.StateReconnecting:
		out = NewDegraded(name, "reconnecting: "+describe(st.Err))
	case stream.StateFailed:
		out = NewUnhealthy(name, "failed: "+describe(st.Err))
	default:
		out = NewHealthy(name, "idle")
	}
	return out.WithMetrics(&Metrics{Attempts: st.Attempts, LastActivity: out.Timestamp})
}

func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	if f, ok := errors.AsFailure(err); ok {
		return f.Class.String() + ": " + sanitizeErrorMessage(f.Error())
	}
	return sanitizeErrorMessage(err.Error())
}

// sanitizeErrorMessage replaces URLs, paths, addresses, ports and
// credentials with placeholders.
func sanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// URLs first, as they contain paths.
	out := httpURLRegex.ReplaceAllString(msg, "[URL]")
	out = unixPathRegex.ReplaceAllString(out, "[PATH]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	for _, word := range []string{"password", "token", "bearer", "secret"} {
		if strings.Contains(lower, word) {
			out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
			break
		}
	}
	return out
}
