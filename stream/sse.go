package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/fetch"
)

// SSESource opens server-sent event streams through the fetch client's
// transport and default headers. Streams are not retried here; reconnection
// belongs to the Handle.
type SSESource struct {
	client *fetch.Client
	path   func(entityID string) string
}

// SSEOption configures an SSESource.
type SSEOption func(*SSESource)

// WithStreamPath overrides the stream address for an entity.
func WithStreamPath(path func(entityID string) string) SSEOption {
	return func(s *SSESource) {
		if path != nil {
			s.path = path
		}
	}
}

// NewSSESource creates a source for /campaigns/{id}/insights/stream.
func NewSSESource(client *fetch.Client, opts ...SSEOption) *SSESource {
	s := &SSESource{client: client, path: campaigns.StreamPath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open implements Source.
func (s *SSESource) Open(ctx context.Context, entityID string) (Conn, error) {
	if err := campaigns.ValidateID(entityID); err != nil {
		return nil, err
	}
	req, err := s.client.NewRequest(ctx, http.MethodGet, s.path(entityID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "SSESource", "Open", "build request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(fetch.RequestIDHeader, uuid.NewString())

	resp, err := s.client.HTTPClient().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewCancelled(ctxErr, component, "Open")
		}
		return nil, errors.NewNetwork(err, component, "Open")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload := map[string]any{}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &payload)
		if payload == nil {
			payload = map[string]any{}
		}
		return nil, errors.NewStatus(resp.StatusCode, payload, component, "Open")
	}

	return newSSEConn(resp.Body), nil
}

type sseConn struct {
	body   io.ReadCloser
	reader *bufio.Reader
	once   sync.Once
}

func newSSEConn(body io.ReadCloser) *sseConn {
	return &sseConn{body: body, reader: bufio.NewReader(body)}
}

// Next reads one event. Comment lines and the id: and retry: fields are
// ignored; an incomplete event at end of stream is discarded.
func (c *sseConn) Next() (Frame, error) {
	var event string
	var data [][]byte

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return Frame{}, fmt.Errorf("%w: stream ended", errors.ErrConnectionLost)
			}
			return Frame{}, fmt.Errorf("%w: %w", errors.ErrConnectionLost, err)
		}

		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if len(data) > 0 || event == EventError {
				return Frame{Event: event, Data: bytes.Join(data, []byte("\n"))}, nil
			}
			event = ""
			continue
		}

		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "event":
			event = string(value)
		case "data":
			data = append(data, append([]byte(nil), value...))
		}
	}
}

func (c *sseConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.body.Close()
	})
	return err
}
