package stream

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/metric"
)

const unit = 10 * time.Millisecond

func newTestHandle(t *testing.T, opts ...Option) (*fakeSource, *Manager, *Handle, *recorder) {
	t.Helper()

	src := newFakeSource()
	opts = append([]Option{WithPolicy(Scaled(unit))}, opts...)
	m, err := NewManager(src, opts...)
	require.NoError(t, err)

	rec := newRecorder()
	h, err := m.Subscribe(rec.onUpdate, OnStatus(rec.onStatus))
	require.NoError(t, err)
	t.Cleanup(h.Close)

	return src, m, h, rec
}

func TestHandle_MalformedFrameDropped(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c := src.next(t)
	assert.Equal(t, "42", c.entityID)

	c.send(`not json`)
	c.send(`{"campaign_id":"42"}`)
	c.send(`{"insights": 10}`)
	c.send(`{"insights": {"clicks": 10}}`)

	u := rec.waitUpdate(t)
	assert.Equal(t, "42", u.EntityID)
	assert.JSONEq(t, `{"clicks": 10}`, string(u.Insights))

	time.Sleep(5 * unit)
	assert.Equal(t, 1, rec.updateCount())

	st := h.Status()
	assert.Equal(t, StateOpen, st.State)
	assert.Equal(t, 0, st.Attempts)
	assert.NoError(t, st.Err)
	assert.False(t, c.isClosed(), "malformed frames do not close the subscription")
}

func TestHandle_ReconnectBudgetExhausted(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	rec.waitState(t, StateOpen)

	c1 := src.next(t)
	start := time.Now()
	c1.fail()
	st := rec.waitState(t, StateReconnecting)
	assert.Equal(t, 0, st.Attempts)
	c1.waitClosed(t)

	c2 := src.next(t)
	assert.GreaterOrEqual(t, time.Since(start), 2*unit, "reconnect waits the fixed delay")
	c2.fail()
	st = rec.waitState(t, StateReconnecting)
	assert.Equal(t, 1, st.Attempts)

	c3 := src.next(t)
	c3.fail()
	st = rec.waitState(t, StateFailed)
	assert.Equal(t, 2, st.Attempts)
	require.Error(t, st.Err)
	assert.ErrorIs(t, st.Err, errors.ErrConnectionLost)
	assert.Equal(t, "connection lost", errors.UserMessage(st.Err))

	src.expectNone(t, 10*unit)
	assert.Equal(t, StateFailed, h.Status().State)
	assert.Len(t, src.openedIDs(), 3)
}

func TestHandle_EventResetsAttempts(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)
	c1.fail()
	rec.waitState(t, StateReconnecting)

	c2 := src.next(t)
	c2.send(`{"insights": {"impressions": 5}}`)
	rec.waitUpdate(t)

	st := h.Status()
	assert.Equal(t, StateOpen, st.State)
	assert.Equal(t, 0, st.Attempts)
	assert.NoError(t, st.Err)

	c2.fail()
	st = rec.waitState(t, StateReconnecting)
	assert.Equal(t, 0, st.Attempts, "first failure after an event")

	c3 := src.next(t)
	c3.fail()
	st = rec.waitState(t, StateReconnecting)
	assert.Equal(t, 1, st.Attempts)

	c4 := src.next(t)
	assert.False(t, c4.isClosed())
	assert.NotEqual(t, StateFailed, h.Status().State)
}

func TestHandle_DeactivateCancelsPendingReconnect(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)
	c1.fail()
	rec.waitState(t, StateReconnecting)

	require.NoError(t, h.Set("42", false))
	st := h.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, 0, st.Attempts)
	assert.NoError(t, st.Err)

	src.expectNone(t, 10*unit)
	assert.Equal(t, []string{"42"}, src.openedIDs())
}

func TestHandle_SwitchEntityOpensFreshConnection(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)

	require.NoError(t, h.Set("42", false))
	assert.True(t, c1.isClosed(), "deactivation closes the connection before Set returns")

	require.NoError(t, h.Set("43", true))
	c2 := src.next(t)
	assert.Equal(t, "43", c2.entityID)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, []string{"42", "43"}, src.openedIDs())

	c1.frames <- fakeItem{frame: Frame{Data: []byte(`{"insights": {"clicks": 1}}`)}}
	c2.send(`{"insights": {"clicks": 2}}`)

	u := rec.waitUpdate(t)
	assert.Equal(t, "43", u.EntityID)
	assert.JSONEq(t, `{"clicks": 2}`, string(u.Insights))

	time.Sleep(5 * unit)
	assert.Equal(t, 1, rec.updateCount())
	src.expectNone(t, 5*unit)
}

func TestHandle_ChangeEntityWhileActive(t *testing.T) {
	src, _, h, _ := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)

	require.NoError(t, h.Set("43", true))
	assert.True(t, c1.isClosed())

	c2 := src.next(t)
	assert.Equal(t, "43", c2.entityID)
	assert.Equal(t, "43", h.Status().EntityID)
}

func TestHandle_SetUnchangedIsNoop(t *testing.T) {
	src, _, h, _ := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)

	require.NoError(t, h.Set("42", true))
	require.NoError(t, h.Set(" 42 ", true))

	src.expectNone(t, 5*unit)
	assert.False(t, c1.isClosed())
}

func TestHandle_EmptyEntityStaysIdle(t *testing.T) {
	src, _, h, _ := newTestHandle(t)

	require.NoError(t, h.Set("", true))
	src.expectNone(t, 5*unit)
	assert.Equal(t, StateIdle, h.Status().State)
}

func TestHandle_NonTerminalErrorIgnored(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c := src.next(t)

	c.sendEvent(EventError, `{"message":"upstream slow"}`)
	c.send(`{"insights": {"spend": 1.5}}`)

	u := rec.waitUpdate(t)
	assert.JSONEq(t, `{"spend": 1.5}`, string(u.Insights))
	assert.Equal(t, StateOpen, h.Status().State)
	src.expectNone(t, 5*unit)
	assert.False(t, c.isClosed())
}

func TestHandle_OpenFailureIsTerminal(t *testing.T) {
	src, _, h, rec := newTestHandle(t)

	refused := fmt.Errorf("connection refused")
	src.failNextOpens(refused, refused, refused)

	require.NoError(t, h.Set("42", true))
	st := rec.waitState(t, StateFailed)

	assert.Equal(t, 2, st.Attempts)
	assert.ErrorIs(t, st.Err, refused)
	assert.ErrorIs(t, st.Err, errors.ErrConnectionLost)
	assert.Len(t, src.openedIDs(), 3)
}

func TestHandle_ReenableAfterFailed(t *testing.T) {
	src, _, h, rec := newTestHandle(t, WithPolicy(Policy{MaxReconnects: 0, Delay: unit}))

	require.NoError(t, h.Set("42", true))
	src.next(t).fail()
	rec.waitState(t, StateFailed)

	require.NoError(t, h.Set("42", true))
	src.expectNone(t, 5*unit)

	require.NoError(t, h.Set("42", false))
	require.NoError(t, h.Set("42", true))
	c := src.next(t)
	assert.Equal(t, "42", c.entityID)

	st := h.Status()
	assert.Equal(t, StateOpen, st.State)
	assert.NoError(t, st.Err)
}

func TestHandle_Close(t *testing.T) {
	src, m, h, rec := newTestHandle(t)

	require.NoError(t, h.Set("42", true))
	c := src.next(t)

	h.Close()
	assert.True(t, c.isClosed())
	assert.Equal(t, 0, m.Active())

	err := h.Set("43", true)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSubscriptionClosed))

	h.Close()
	src.expectNone(t, 5*unit)
	assert.Equal(t, 0, rec.updateCount())
}

func TestManager_Close(t *testing.T) {
	src := newFakeSource()
	m, err := NewManager(src, WithPolicy(Scaled(unit)))
	require.NoError(t, err)

	var conns []*fakeConn
	for _, id := range []string{"1", "2"} {
		h, err := m.Subscribe(func(Update) {})
		require.NoError(t, err)
		require.NoError(t, h.Set(id, true))
		conns = append(conns, src.next(t))
	}
	assert.Equal(t, 2, m.Active())

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Active())
	for _, c := range conns {
		assert.True(t, c.isClosed())
	}

	_, err = m.Subscribe(func(Update) {})
	assert.True(t, stderrors.Is(err, errors.ErrSubscriptionClosed))
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewManager(newFakeSource(), WithPolicy(Policy{MaxReconnects: -1}))
	assert.True(t, errors.IsInvalid(err))

	m, err := NewManager(newFakeSource())
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), m.Policy())

	_, err = m.Subscribe(nil)
	assert.True(t, errors.IsInvalid(err))
}

func TestHandle_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	src, _, h, rec := newTestHandle(t, WithMetrics(registry))
	m := registry.CoreMetrics()

	require.NoError(t, h.Set("42", true))
	c1 := src.next(t)
	c1.send(`garbage`)
	c1.fail()
	rec.waitState(t, StateReconnecting)

	c2 := src.next(t)
	c2.send(`{"insights": {"clicks": 3}}`)
	rec.waitUpdate(t)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.StreamConnects))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StreamReconnects))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StreamsOpen))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StreamEventsTotal.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StreamEventsTotal.WithLabelValues("delivered")))

	require.NoError(t, h.Set("42", false))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.StreamsOpen))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
