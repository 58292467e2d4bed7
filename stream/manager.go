package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/metric"
)

const component = "stream"

// Policy bounds automatic reconnection after terminal stream errors.
type Policy struct {
	MaxReconnects int           // Reconnect attempts before Failed
	Delay         time.Duration // Fixed wait before each reconnect
}

// DefaultPolicy returns two reconnects two seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxReconnects: 2, Delay: 2 * time.Second}
}

// Scaled returns the default policy with the delay expressed as two units.
func Scaled(unit time.Duration) Policy {
	return Policy{MaxReconnects: 2, Delay: 2 * unit}
}

// Validate checks the policy for errors
func (p Policy) Validate() error {
	if p.MaxReconnects < 0 {
		return fmt.Errorf("stream: MaxReconnects cannot be negative")
	}
	if p.Delay < 0 {
		return fmt.Errorf("stream: Delay cannot be negative")
	}
	return nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the reconnect policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records connections, reconnects and events in the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(m *Manager) {
		m.metrics = registry.CoreMetrics()
	}
}

// Manager creates subscription handles over a Source and tracks them so
// they can be shut down together.
type Manager struct {
	source  Source
	policy  Policy
	logger  *slog.Logger
	metrics *metric.Metrics

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
}

// NewManager creates a manager over source.
func NewManager(source Source, opts ...Option) (*Manager, error) {
	if source == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Manager", "NewManager", "source is required")
	}

	m := &Manager{
		source:  source,
		policy:  DefaultPolicy(),
		logger:  slog.Default(),
		handles: make(map[*Handle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.policy.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Manager", "NewManager", "validate reconnect policy")
	}
	m.logger = m.logger.With("component", component)
	return m, nil
}

// Policy returns the manager's reconnect policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Subscribe creates an Idle handle. onUpdate receives every successfully
// parsed event; it and any status observer run on the handle's own
// goroutine, one at a time, and must not call Set or Close on the same
// handle.
func (m *Manager) Subscribe(onUpdate UpdateFunc, opts ...SubscribeOption) (*Handle, error) {
	if onUpdate == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Manager", "Subscribe", "update callback is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.Wrap(errors.ErrSubscriptionClosed, "Manager", "Subscribe", "subscribe")
	}

	h := newHandle(m, onUpdate)
	for _, opt := range opts {
		opt(h)
	}
	m.handles[h] = struct{}{}
	go h.run()
	return h, nil
}

// Active returns the number of handles not yet closed.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Close closes every handle. Later Subscribe calls fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.handles))
	for h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
	return nil
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, h)
}
