package stream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/fetch"
	"github.com/c360/campaignpulse/testutil"
)

func TestSSEConn_Framing(t *testing.T) {
	raw := strings.Join([]string{
		": keep-alive",
		"id: 1",
		"retry: 5000",
		`data: {"insights":`,
		`data: {"clicks": 1}}`,
		"",
		"",
		"event: error",
		`data: {"message":"upstream slow"}`,
		"",
		"event: error",
		"",
		"data:{\"insights\":{\"clicks\":2}}\r",
		"\r",
		"data: trailing event without terminator",
	}, "\n")

	conn := newSSEConn(io.NopCloser(strings.NewReader(raw)))

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "", f.Event)
	assert.Equal(t, "{\"insights\":\n{\"clicks\": 1}}", string(f.Data))
	_, err = parseInsights(f.Data)
	assert.NoError(t, err, "multi-line data is joined before parsing")

	f, err = conn.Next()
	require.NoError(t, err)
	assert.Equal(t, EventError, f.Event)
	assert.JSONEq(t, `{"message":"upstream slow"}`, string(f.Data))

	f, err = conn.Next()
	require.NoError(t, err)
	assert.Equal(t, EventError, f.Event)
	assert.Empty(t, f.Data)

	f, err = conn.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"insights":{"clicks":2}}`, string(f.Data))

	_, err = conn.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectionLost)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name string
		data string
		ok   bool
	}{
		{"valid", `{"insights": {"clicks": 10}}`, true},
		{"empty object", `{"insights": {}}`, true},
		{"not json", `clicks=10`, false},
		{"missing insights", `{"clicks": 10}`, false},
		{"null insights", `{"insights": null}`, false},
		{"scalar insights", `{"insights": 10}`, false},
		{"array payload", `[{"insights": {}}]`, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			insights, err := parseInsights([]byte(test.data))
			if test.ok {
				require.NoError(t, err)
				assert.NotEmpty(t, insights)
				return
			}
			assert.ErrorIs(t, err, errors.ErrMalformedEvent)
			assert.Nil(t, insights)
		})
	}
}

func newSSETestSource(t *testing.T, srv *testutil.SSEServer) *SSESource {
	t.Helper()
	client, err := fetch.NewClient(srv.URL, fetch.WithHeader("Authorization", "Bearer live"))
	require.NoError(t, err)
	return NewSSESource(client)
}

func TestSSESource_Open(t *testing.T) {
	srv := testutil.NewSSEServer(t)
	src := newSSETestSource(t, srv)

	conn, err := src.Open(context.Background(), "42")
	require.NoError(t, err)
	defer conn.Close()

	sc := srv.Accept(t, 2*time.Second)
	assert.Equal(t, "/campaigns/42/insights/stream", sc.Path)
	assert.Equal(t, "text/event-stream", sc.Header.Get("Accept"))
	assert.Equal(t, "Bearer live", sc.Header.Get("Authorization"))
	assert.NotEmpty(t, sc.Header.Get(fetch.RequestIDHeader))

	require.NoError(t, sc.Send(`{"insights":{"clicks":10}}`))
	f, err := conn.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"insights":{"clicks":10}}`, string(f.Data))

	sc.Close()
	_, err = conn.Next()
	assert.ErrorIs(t, err, errors.ErrConnectionLost)
}

func TestSSESource_OpenRejected(t *testing.T) {
	srv := testutil.NewSSEServer(t)
	srv.RejectNext(http.StatusNotFound)
	src := newSSETestSource(t, srv)

	_, err := src.Open(context.Background(), "missing")
	require.Error(t, err)

	f, ok := errors.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, errors.ClassClientError, f.Class)
	assert.Equal(t, http.StatusNotFound, f.Status)
	assert.True(t, errors.IsNotFound(err))
}

func TestSSESource_OpenDotSegmentID(t *testing.T) {
	srv := testutil.NewSSEServer(t)
	src := newSSETestSource(t, srv)

	for _, id := range []string{".", ".."} {
		_, err := src.Open(context.Background(), id)
		assert.True(t, errors.IsInvalid(err), id)
	}
	srv.ExpectNoConnection(t, 5*unit)
}

func TestSSESource_WithManager(t *testing.T) {
	srv := testutil.NewSSEServer(t)
	m, err := NewManager(newSSETestSource(t, srv), WithPolicy(Scaled(unit)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	rec := newRecorder()
	h, err := m.Subscribe(rec.onUpdate, OnStatus(rec.onStatus))
	require.NoError(t, err)

	require.NoError(t, h.Set("42", true))
	sc := srv.Accept(t, 2*time.Second)

	require.NoError(t, sc.Send(`{not json`))
	require.NoError(t, sc.Send(`{"insights": {"clicks": 10}}`))
	u := rec.waitUpdate(t)
	assert.JSONEq(t, `{"clicks": 10}`, string(u.Insights))

	sc.Close()
	rec.waitState(t, StateReconnecting)
	sc2 := srv.Accept(t, 2*time.Second)
	assert.Equal(t, "/campaigns/42/insights/stream", sc2.Path)

	require.NoError(t, h.Set("43", true))
	sc2.WaitGone(t, 2*time.Second)
	sc3 := srv.Accept(t, 2*time.Second)
	assert.Equal(t, "/campaigns/43/insights/stream", sc3.Path)

	h.Close()
	sc3.WaitGone(t, 2*time.Second)
	srv.ExpectNoConnection(t, 5*unit)
	assert.Equal(t, 1, rec.updateCount())
}
