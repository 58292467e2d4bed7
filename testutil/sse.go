package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// SSEServer serves server-sent event streams that a test drives by hand.
// Every accepted request is handed to the test as an SSEConn.
type SSEServer struct {
	*httptest.Server

	conns chan *SSEConn

	mu     sync.Mutex
	reject []int
}

// NewSSEServer starts a server that is closed when the test ends.
func NewSSEServer(t testing.TB) *SSEServer {
	t.Helper()

	s := &SSEServer{conns: make(chan *SSEConn, 64)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.CloseClientConnections()
		s.Close()
	})
	return s
}

// RejectNext makes the next connection attempts fail with the given statuses.
func (s *SSEServer) RejectNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = append(s.reject, statuses...)
}

// Accept waits for the next stream connection.
func (s *SSEServer) Accept(t testing.TB, timeout time.Duration) *SSEConn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(timeout):
		t.Fatalf("no stream connection within %s", timeout)
		return nil
	}
}

// ExpectNoConnection fails the test if a stream connection arrives within d.
func (s *SSEServer) ExpectNoConnection(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case c := <-s.conns:
		t.Fatalf("unexpected stream connection to %s", c.Path)
	case <-time.After(d):
	}
}

func (s *SSEServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if len(s.reject) > 0 {
		status := s.reject[0]
		s.reject = s.reject[1:]
		s.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.mu.Unlock()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := &SSEConn{
		Path:    r.URL.Path,
		Header:  r.Header.Clone(),
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
		gone:    r.Context().Done(),
	}
	s.conns <- c

	select {
	case <-c.done:
	case <-r.Context().Done():
		c.markClosed()
	}
}

// SSEConn is one open stream. Writes are safe until Close or the client
// disconnects.
type SSEConn struct {
	Path   string
	Header http.Header

	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	gone    <-chan struct{}
	closed  bool
}

// Send writes one message event.
func (c *SSEConn) Send(data string) error {
	return c.write(fmt.Sprintf("data: %s\n\n", data))
}

// SendEvent writes one event with an explicit event type.
func (c *SSEConn) SendEvent(event, data string) error {
	return c.write(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
}

// SendRaw writes raw bytes to the stream, for framing tests.
func (c *SSEConn) SendRaw(raw string) error {
	return c.write(raw)
}

// Close ends the stream from the server side.
func (c *SSEConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// WaitGone waits for the client to disconnect.
func (c *SSEConn) WaitGone(t testing.TB, timeout time.Duration) {
	t.Helper()
	select {
	case <-c.gone:
	case <-time.After(timeout):
		t.Fatalf("client did not disconnect from %s within %s", c.Path, timeout)
	}
}

func (c *SSEConn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *SSEConn) write(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("testutil: stream %s closed", c.Path)
	}
	if _, err := fmt.Fprint(c.w, s); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}
