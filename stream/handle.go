package stream

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/c360/campaignpulse/errors"
)

// State is the lifecycle state of a Handle.
type State int

const (
	// StateIdle means no connection: live mode is off or no entity is set
	StateIdle State = iota
	// StateOpen means a connection is open or being opened
	StateOpen
	// StateReconnecting means a reconnect is scheduled after a terminal error
	StateReconnecting
	// StateFailed means the reconnect budget is spent; only Set can leave it
	StateFailed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of a Handle.
type Status struct {
	State    State
	EntityID string
	Attempts int   // Reconnect attempts since the last parsed event
	Err      error // Last terminal error; nil once an event parses
}

// Update is one successfully parsed live event.
type Update struct {
	EntityID   string
	Insights   json.RawMessage
	ReceivedAt time.Time
}

// UpdateFunc consumes live updates.
type UpdateFunc func(Update)

// SubscribeOption configures a Handle.
type SubscribeOption func(*Handle)

// OnStatus registers an observer called after every state transition.
func OnStatus(fn func(Status)) SubscribeOption {
	return func(h *Handle) {
		h.onStatus = fn
	}
}

type setCmd struct {
	entityID string
	active   bool
	done     chan struct{}
}

type connEvent struct {
	gen   uint64
	frame Frame
	err   error
}

// connection is one generation of live connection. Its reader goroutine
// is the only user of conn until close.
type connection struct {
	gen      uint64
	entityID string
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// attach hands the opened conn to the connection, or closes it when the
// connection was torn down while opening.
func (c *connection) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

// close tears the connection down and waits for its reader to exit.
func (c *connection) close() {
	c.cancel()
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	<-c.done
}

// Handle keeps at most one live connection matching its current
// (entity, active) pair. All connection and timer state is owned by a single
// goroutine; Set and Close hand it commands and wait until they are applied.
type Handle struct {
	m        *Manager
	onUpdate UpdateFunc
	onStatus func(Status)

	cmds    chan setCmd
	events  chan connEvent
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu     sync.RWMutex
	status Status

	// owned by run
	entityID   string
	active     bool
	attempts   int
	lastErr    error
	gen        uint64
	current    *connection
	retryTimer *time.Timer
	retryC     <-chan time.Time
}

func newHandle(m *Manager, onUpdate UpdateFunc) *Handle {
	return &Handle{
		m:        m,
		onUpdate: onUpdate,
		cmds:     make(chan setCmd),
		events:   make(chan connEvent),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Set makes (entityID, active) current. Changing either field tears down any
// open connection and pending reconnect before anything else happens, resets
// the reconnect count, and opens a fresh connection when active with a
// non-empty id. An unchanged pair is a no-op. When Set returns, the old
// connection is closed.
func (h *Handle) Set(entityID string, active bool) error {
	cmd := setCmd{entityID: strings.TrimSpace(entityID), active: active, done: make(chan struct{})}
	select {
	case h.cmds <- cmd:
	case <-h.stopped:
		return errors.Wrap(errors.ErrSubscriptionClosed, "Handle", "Set", "set subscription")
	}
	<-cmd.done
	return nil
}

// Status returns the current snapshot.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Close tears the handle down. No callback runs after Close returns.
func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.quit)
	})
	<-h.stopped
}

func (h *Handle) run() {
	defer close(h.stopped)
	defer h.m.release(h)

	for {
		select {
		case cmd := <-h.cmds:
			h.apply(cmd.entityID, cmd.active)
			close(cmd.done)

		case ev := <-h.events:
			h.handle(ev)

		case <-h.retryC:
			h.retryTimer, h.retryC = nil, nil
			h.attempts++
			h.connect(true)

		case <-h.quit:
			h.teardown()
			h.setStatus(Status{State: StateIdle, EntityID: h.entityID})
			return
		}
	}
}

func (h *Handle) apply(entityID string, active bool) {
	if entityID == h.entityID && active == h.active {
		return
	}

	h.teardown()
	h.entityID, h.active = entityID, active
	h.attempts, h.lastErr = 0, nil

	if active && entityID != "" {
		h.connect(false)
		return
	}
	h.m.logger.Info("live stream idle", "entity_id", entityID, "active", active)
	h.publish(StateIdle)
}

// teardown cancels any pending reconnect and closes any open connection.
func (h *Handle) teardown() {
	if h.retryTimer != nil {
		h.retryTimer.Stop()
		h.retryTimer, h.retryC = nil, nil
	}
	h.closeCurrent()
}

func (h *Handle) closeCurrent() {
	if h.current == nil {
		return
	}
	h.current.close()
	h.current = nil
	if h.m.metrics != nil {
		h.m.metrics.RecordStreamClosed()
	}
}

// connect opens a fresh connection generation. Any previous connection must
// already be closed.
func (h *Handle) connect(reconnect bool) {
	h.gen++
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		gen:      h.gen,
		entityID: h.entityID,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	h.current = c
	go h.read(ctx, c)

	if h.m.metrics != nil {
		h.m.metrics.RecordStreamOpened(reconnect)
	}
	h.m.logger.Info("live stream connecting",
		"entity_id", h.entityID, "attempt", h.attempts, "reconnect", reconnect)
	h.publish(StateOpen)
}

// read opens the connection and forwards frames until a terminal error or
// teardown.
func (h *Handle) read(ctx context.Context, c *connection) {
	defer close(c.done)

	conn, err := h.m.source.Open(ctx, c.entityID)
	if err != nil {
		h.send(ctx, connEvent{gen: c.gen, err: err})
		return
	}
	if !c.attach(conn) {
		return
	}

	for {
		frame, err := conn.Next()
		if err != nil {
			h.send(ctx, connEvent{gen: c.gen, err: err})
			return
		}
		if !h.send(ctx, connEvent{gen: c.gen, frame: frame}) {
			return
		}
	}
}

func (h *Handle) send(ctx context.Context, ev connEvent) bool {
	select {
	case h.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Handle) handle(ev connEvent) {
	if h.current == nil || ev.gen != h.current.gen {
		return
	}

	if ev.err != nil {
		h.terminal(ev.err)
		return
	}

	if ev.frame.Event == EventError {
		h.m.logger.Debug("live stream reported recoverable error",
			"entity_id", h.entityID, "data", string(ev.frame.Data))
		return
	}

	insights, err := parseInsights(ev.frame.Data)
	if err != nil {
		h.m.logger.Debug("dropping malformed live event",
			"entity_id", h.entityID, "bytes", len(ev.frame.Data), "error", err)
		if h.m.metrics != nil {
			h.m.metrics.RecordStreamEvent(false)
		}
		return
	}

	if h.m.metrics != nil {
		h.m.metrics.RecordStreamEvent(true)
	}
	if h.attempts != 0 || h.lastErr != nil {
		h.attempts, h.lastErr = 0, nil
		h.publish(StateOpen)
	}
	h.onUpdate(Update{EntityID: h.entityID, Insights: insights, ReceivedAt: time.Now()})
}

// terminal handles a connection that closed for good.
func (h *Handle) terminal(err error) {
	h.closeCurrent()
	h.lastErr = err

	if h.attempts < h.m.policy.MaxReconnects {
		h.retryTimer = time.NewTimer(h.m.policy.Delay)
		h.retryC = h.retryTimer.C
		h.m.logger.Info("live stream lost, reconnecting",
			"entity_id", h.entityID, "attempt", h.attempts+1,
			"max", h.m.policy.MaxReconnects, "delay", h.m.policy.Delay, "error", err)
		h.publish(StateReconnecting)
		return
	}

	if h.m.metrics != nil {
		h.m.metrics.RecordStreamFailed()
	}
	h.m.logger.Warn("live stream failed, reconnect budget spent",
		"entity_id", h.entityID, "attempts", h.attempts, "error", err)
	h.publish(StateFailed)
}

func (h *Handle) publish(state State) {
	st := Status{State: state, EntityID: h.entityID, Attempts: h.attempts}
	if h.lastErr != nil {
		st.Err = connectionLost(h.lastErr)
	}
	h.setStatus(st)
	if h.onStatus != nil {
		h.onStatus(st)
	}
}

func (h *Handle) setStatus(st Status) {
	h.mu.Lock()
	h.status = st
	h.mu.Unlock()
}

func connectionLost(err error) error {
	if stderrors.Is(err, errors.ErrConnectionLost) {
		return err
	}
	return fmt.Errorf("%w: %w", errors.ErrConnectionLost, err)
}

// parseInsights accepts a JSON object carrying an "insights" object. Any
// other payload is reported as errors.ErrMalformedEvent.
func parseInsights(data []byte) (json.RawMessage, error) {
	var msg struct {
		Insights json.RawMessage `json:"insights"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	trimmed := bytes.TrimSpace(msg.Insights)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: no insights object", errors.ErrMalformedEvent)
	}
	return trimmed, nil
}
