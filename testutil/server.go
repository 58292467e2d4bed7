package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Reply is one scripted response.
type Reply struct {
	Status int
	Body   string
	Header map[string]string

	// Delay holds the response back, e.g. to let a test cancel mid-flight.
	Delay time.Duration

	// Drop closes the connection without writing a response, which the
	// client sees as a network failure.
	Drop bool
}

// JSON builds a reply with a JSON-encoded body.
func JSON(status int, v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Status: status, Body: string(data), Header: map[string]string{"Content-Type": "application/json"}}
}

// Raw builds a reply with a literal body.
func Raw(status int, body string) Reply {
	return Reply{Status: status, Body: body}
}

// Dropped is a reply that closes the connection with no response.
func Dropped() Reply {
	return Reply{Drop: true}
}

// RecordedRequest is a request observed by a ScriptedServer.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
	At       time.Time
}

// ScriptedServer is an httptest server that answers each path from a script.
// Replies for a path are consumed in order; the last one repeats. Unscripted
// paths answer 404 with {"error":"not found"}.
type ScriptedServer struct {
	*httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Reply
	requests []RecordedRequest
}

// NewScriptedServer starts a server that is closed when the test ends.
func NewScriptedServer(t testing.TB) *ScriptedServer {
	t.Helper()

	s := &ScriptedServer{scripts: make(map[string][]Reply)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Script sets the replies for a path, replacing any previous script.
func (s *ScriptedServer) Script(path string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[path] = append([]Reply(nil), replies...)
}

// Requests returns the recorded requests for path, in arrival order.
func (s *ScriptedServer) Requests(path string) []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RecordedRequest
	for _, r := range s.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many requests reached path.
func (s *ScriptedServer) Count(path string) int {
	return len(s.Requests(path))
}

func (s *ScriptedServer) next(path string) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	script := s.scripts[path]
	if len(script) == 0 {
		return Reply{}, false
	}
	reply := script[0]
	if len(script) > 1 {
		s.scripts[path] = script[1:]
	}
	return reply, true
}

func (s *ScriptedServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
		At:       time.Now(),
	})
	s.mu.Unlock()

	reply, ok := s.next(r.URL.Path)
	if !ok {
		reply = JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if reply.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("testutil: response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	for k, v := range reply.Header {
		w.Header().Set(k, v)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply.Body)
}
