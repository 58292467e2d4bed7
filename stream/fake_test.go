package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeSource is an in-memory Source. Each Open yields a fakeConn the test
// drives directly.
type fakeSource struct {
	mu      sync.Mutex
	opened  []string
	openErr []error

	conns chan *fakeConn
}

func newFakeSource() *fakeSource {
	return &fakeSource{conns: make(chan *fakeConn, 64)}
}

// failNextOpens makes the next opens fail with err.
func (s *fakeSource) failNextOpens(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = append(s.openErr, errs...)
}

func (s *fakeSource) Open(ctx context.Context, entityID string) (Conn, error) {
	s.mu.Lock()
	s.opened = append(s.opened, entityID)
	var err error
	if len(s.openErr) > 0 {
		err, s.openErr = s.openErr[0], s.openErr[1:]
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c := &fakeConn{
		entityID: entityID,
		frames:   make(chan fakeItem, 64),
		closed:   make(chan struct{}),
	}
	s.conns <- c
	return c, nil
}

func (s *fakeSource) openedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

func (s *fakeSource) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection opened")
		return nil
	}
}

func (s *fakeSource) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case c := <-s.conns:
		t.Fatalf("unexpected connection for %q", c.entityID)
	case <-time.After(d):
	}
}

type fakeItem struct {
	frame Frame
	err   error
}

type fakeConn struct {
	entityID string
	frames   chan fakeItem
	closed   chan struct{}
	once     sync.Once
}

func (c *fakeConn) Next() (Frame, error) {
	select {
	case it := <-c.frames:
		return it.frame, it.err
	case <-c.closed:
		return Frame{}, fmt.Errorf("fake connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(data string) {
	c.frames <- fakeItem{frame: Frame{Data: []byte(data)}}
}

func (c *fakeConn) sendEvent(event, data string) {
	c.frames <- fakeItem{frame: Frame{Event: event, Data: []byte(data)}}
}

// fail delivers a terminal error.
func (c *fakeConn) fail() {
	c.frames <- fakeItem{err: fmt.Errorf("stream reset by peer")}
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection for %q was not closed", c.entityID)
	}
}

// recorder collects updates and status transitions.
type recorder struct {
	mu       sync.Mutex
	updates  []Update
	statuses []Status

	updateCh chan Update
	statusCh chan Status
}

func newRecorder() *recorder {
	return &recorder{
		updateCh: make(chan Update, 64),
		statusCh: make(chan Status, 64),
	}
}

func (r *recorder) onUpdate(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	r.updateCh <- u
}

func (r *recorder) onStatus(s Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
	r.statusCh <- s
}

func (r *recorder) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) waitUpdate(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-r.updateCh:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
		return Update{}
	}
}

// waitState waits for a transition into state.
func (r *recorder) waitState(t *testing.T, state State) Status {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.statusCh:
			if s.State == state {
				return s
			}
		case <-deadline:
			t.Fatalf("never reached state %s", state)
			return Status{}
		}
	}
}
