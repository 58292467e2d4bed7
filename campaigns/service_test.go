package campaigns

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/fetch"
	"github.com/c360/campaignpulse/pkg/retry"
	"github.com/c360/campaignpulse/testutil"
)

func newTestService(t *testing.T) (*testutil.ScriptedServer, *Service) {
	t.Helper()
	srv := testutil.NewScriptedServer(t)
	testutil.ScriptCampaignAPI(srv)

	client, err := fetch.NewClient(srv.URL, fetch.WithPolicy(retry.Scaled(10*time.Millisecond)))
	require.NoError(t, err)
	return srv, NewService(client)
}

func TestService_List(t *testing.T) {
	_, svc := newTestService(t)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "42", list[0].ID)
	assert.Equal(t, "Spring Sale", list[0].Name)
	assert.Equal(t, StatusActive, list[0].Status)
	assert.Equal(t, 250.0, list[0].DailyBudget)
	require.NotNil(t, list[0].StartTime)
	assert.Equal(t, 2024, list[0].StartTime.Year())
	assert.Nil(t, list[1].StartTime)
}

func TestService_ListEmpty(t *testing.T) {
	srv, svc := newTestService(t)
	srv.Script("/campaigns", testutil.Raw(http.StatusOK, `{}`))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_Get(t *testing.T) {
	srv, svc := newTestService(t)
	srv.Script("/campaigns/c/3", testutil.JSON(http.StatusOK, testutil.CampaignHoliday))

	c, err := svc.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Spring Sale", c.Name)

	c, err = svc.Get(context.Background(), "c/3")
	require.NoError(t, err)
	assert.Equal(t, "Holiday Push", c.Name)
	reqs := srv.Requests("/campaigns/c/3")
	require.Len(t, reqs, 1)
}

func TestService_GetNotFound(t *testing.T) {
	srv, svc := newTestService(t)

	_, err := svc.Get(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "not found", errors.UserMessage(err))
	assert.Equal(t, 1, srv.Count("/campaigns/999"))
}

func TestService_InvalidID(t *testing.T) {
	srv, svc := newTestService(t)

	_, err := svc.Get(context.Background(), " ")
	assert.True(t, errors.IsInvalid(err))

	_, err = svc.Insights(context.Background(), "")
	assert.True(t, errors.IsInvalid(err))

	assert.Equal(t, 0, srv.Count("/campaigns/"))
}

func TestService_DotSegmentIDs(t *testing.T) {
	srv, svc := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{".", ".."} {
		_, err := svc.Get(ctx, id)
		assert.True(t, errors.IsInvalid(err), id)

		_, err = svc.Insights(ctx, id)
		assert.True(t, errors.IsInvalid(err), id)

		assert.True(t, errors.IsInvalid(ValidateID(id)), id)
	}
	assert.NoError(t, ValidateID("42"))

	assert.Equal(t, 0, srv.Count("/campaigns"))
	assert.Equal(t, 0, srv.Count("/campaigns/insights"))
	assert.Equal(t, 0, srv.Count("/"))
}

func TestService_Aggregate(t *testing.T) {
	_, svc := newTestService(t)

	s, err := svc.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.CampaignCount)
	assert.Equal(t, 1, s.ActiveCount)
	assert.Equal(t, int64(50000), s.Insights.Impressions)
	assert.InDelta(t, 940.25, s.Insights.Spend, 1e-9)
}

func TestService_Insights(t *testing.T) {
	_, svc := newTestService(t)

	in, err := svc.Insights(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(340), in.Clicks)
	assert.InDelta(t, 340.0/12000.0, in.CTR(), 1e-9)
	assert.InDelta(t, 187.5/340.0, in.CPC(), 1e-9)
}

func TestService_PropagatesFailures(t *testing.T) {
	srv, svc := newTestService(t)
	srv.Script("/campaigns/insights", testutil.JSON(http.StatusTooManyRequests, map[string]any{"retry_after": 1}))

	_, err := svc.Aggregate(context.Background())
	f, ok := errors.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, errors.ClassRateLimited, f.Class)
	assert.Equal(t, 3, srv.Count("/campaigns/insights"))
}

func TestService_ForwardsCancellation(t *testing.T) {
	srv, svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.List(ctx)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, 0, srv.Count("/campaigns"))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/campaigns/42", CampaignPath("42"))
	assert.Equal(t, "/campaigns/42/insights", InsightsPath("42"))
	assert.Equal(t, "/campaigns/42/insights/stream", StreamPath("42"))
	assert.Equal(t, "/campaigns/a%20b", CampaignPath("a b"))
	assert.Equal(t, "/campaigns/c%2F3/insights", InsightsPath("c/3"))
}

func TestInsights_ZeroDivisors(t *testing.T) {
	var in Insights
	assert.Equal(t, 0.0, in.CTR())
	assert.Equal(t, 0.0, in.CPC())
}
