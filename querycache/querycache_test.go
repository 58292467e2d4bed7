package querycache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/fetch"
	"github.com/c360/campaignpulse/pkg/retry"
	"github.com/c360/campaignpulse/stream"
	"github.com/c360/campaignpulse/testutil"
)

const unit = 10 * time.Millisecond

func newTestQueries(t *testing.T, cfg Config) (*testutil.ScriptedServer, *Queries) {
	t.Helper()

	srv := testutil.NewScriptedServer(t)
	testutil.ScriptCampaignAPI(srv)

	client, err := fetch.NewClient(srv.URL, fetch.WithPolicy(retry.Scaled(unit)))
	require.NoError(t, err)

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return srv, NewQueries(campaigns.NewService(client), c)
}

func TestQueries_CachesFreshResults(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		list, err := q.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		c, err := q.Get(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, "Spring Sale", c.Name)
	}

	assert.Equal(t, 1, srv.Count("/campaigns"))
	assert.Equal(t, 1, srv.Count("/campaigns/42"))

	stats := q.Cache().Stats()
	require.NotNil(t, stats)
	assert.Equal(t, int64(4), stats.Hits())
}

func TestQueries_StaleAfterPerKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleAfter.Insights = 2 * unit
	srv, q := newTestQueries(t, cfg)
	ctx := context.Background()

	_, err := q.Insights(ctx, "42")
	require.NoError(t, err)
	_, err = q.Aggregate(ctx)
	require.NoError(t, err)

	time.Sleep(3 * unit)

	_, err = q.Insights(ctx, "42")
	require.NoError(t, err)
	_, err = q.Aggregate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, srv.Count("/campaigns/42/insights"), "insights went stale")
	assert.Equal(t, 1, srv.Count("/campaigns/insights"), "aggregate still fresh")
}

func TestQueries_DeduplicatesConcurrentReads(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	reply := testutil.JSON(http.StatusOK, testutil.AggregateFixture)
	reply.Delay = 5 * unit
	srv.Script("/campaigns/insights", reply)

	var g errgroup.Group
	results := make([]*campaigns.Summary, 8)
	for i := range results {
		g.Go(func() error {
			s, err := q.Aggregate(context.Background())
			results[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, srv.Count("/campaigns/insights"))
	for _, s := range results {
		require.NotNil(t, s)
		assert.Equal(t, 3, s.CampaignCount)
	}
}

func TestQueries_CallerCancellationLeavesSharedLoad(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	reply := testutil.JSON(http.StatusOK, testutil.AggregateFixture)
	reply.Delay = 10 * unit
	srv.Script("/campaigns/insights", reply)

	ctx, cancel := context.WithTimeout(context.Background(), 2*unit)
	defer cancel()

	var g errgroup.Group
	var patient *campaigns.Summary
	g.Go(func() error {
		var err error
		patient, err = q.Aggregate(context.Background())
		return err
	})

	time.Sleep(unit)
	_, err := q.Aggregate(ctx)
	class, ok := errors.ClassOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ClassCancelled, class)

	require.NoError(t, g.Wait())
	require.NotNil(t, patient)
	assert.Equal(t, 1, srv.Count("/campaigns/insights"))
}

func TestQueries_FailuresNotCached(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	srv.Script("/campaigns",
		testutil.JSON(http.StatusInternalServerError, map[string]any{"error": "db down"}),
		testutil.JSON(http.StatusOK, map[string]any{"campaigns": testutil.Campaigns()}),
	)

	_, err := q.List(context.Background())
	class, _ := errors.ClassOf(err)
	assert.Equal(t, errors.ClassServerError, class, "failure is passed through unchanged")

	list, err := q.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 2, srv.Count("/campaigns"))
}

func TestQueries_Invalidate(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.List(ctx)
	require.NoError(t, err)
	assert.True(t, q.Cache().Invalidate(Key(KindList, "")))
	assert.False(t, q.Cache().Invalidate(Key(KindList, "")))

	_, err = q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Count("/campaigns"))
}

func TestQueries_InvalidatePrefix(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	srv.Script("/campaigns/7/insights", testutil.JSON(http.StatusOK, testutil.InsightsFixture))
	ctx := context.Background()

	for _, id := range []string{"42", "7"} {
		_, err := q.Insights(ctx, id)
		require.NoError(t, err)
	}
	_, err := q.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, q.Cache().InvalidatePrefix("insights/"))

	_, err = q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Count("/campaigns"))
}

func TestQueries_OnUpdate(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.Insights(ctx, "42")
	require.NoError(t, err)
	_, err = q.Aggregate(ctx)
	require.NoError(t, err)
	_, err = q.Get(ctx, "42")
	require.NoError(t, err)

	q.OnUpdate(stream.Update{EntityID: "42", Insights: []byte(`{"clicks": 341}`)})

	_, err = q.Insights(ctx, "42")
	require.NoError(t, err)
	_, err = q.Aggregate(ctx)
	require.NoError(t, err)
	_, err = q.Get(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, 2, srv.Count("/campaigns/42/insights"))
	assert.Equal(t, 2, srv.Count("/campaigns/insights"))
	assert.Equal(t, 1, srv.Count("/campaigns/42"), "campaign metadata is not superseded by live KPIs")
}

func TestQueries_InvalidateCampaign(t *testing.T) {
	srv, q := newTestQueries(t, DefaultConfig())
	ctx := context.Background()

	_, err := q.Get(ctx, "42")
	require.NoError(t, err)
	_, err = q.List(ctx)
	require.NoError(t, err)

	q.InvalidateCampaign("42")

	_, err = q.Get(ctx, "42")
	require.NoError(t, err)
	_, err = q.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, srv.Count("/campaigns/42"))
	assert.Equal(t, 2, srv.Count("/campaigns"))
}

func TestQueries_DisabledStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Enabled = false
	srv, q := newTestQueries(t, cfg)

	for i := 0; i < 2; i++ {
		_, err := q.List(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, srv.Count("/campaigns"))
	assert.Nil(t, q.Cache().Stats())
}

func TestNew_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleAfter.List = -time.Second
	_, err := New(context.Background(), cfg)
	assert.True(t, errors.IsInvalid(err))

	cfg = DefaultConfig()
	cfg.Store.TTL = 0
	_, err = New(context.Background(), cfg)
	assert.True(t, errors.IsInvalid(err))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "list", Key(KindList, ""))
	assert.Equal(t, "insights/42", Key(KindInsights, "42"))
	assert.Equal(t, time.Duration(0), DefaultStaleAfter().For(Kind("unknown")))
}
