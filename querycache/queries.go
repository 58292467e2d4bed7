package querycache

import (
	"context"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/stream"
)

// Queries puts a Cache in front of the campaign resource calls.
type Queries struct {
	svc   *campaigns.Service
	cache *Cache
}

// NewQueries creates cached queries over svc.
func NewQueries(svc *campaigns.Service, cache *Cache) *Queries {
	return &Queries{svc: svc, cache: cache}
}

// Cache returns the underlying cache.
func (q *Queries) Cache() *Cache {
	return q.cache
}

// List returns every campaign.
func (q *Queries) List(ctx context.Context) ([]campaigns.Campaign, error) {
	return Fetch(ctx, q.cache, KindList, Key(KindList, ""), q.svc.List)
}

// Get returns one campaign.
func (q *Queries) Get(ctx context.Context, id string) (*campaigns.Campaign, error) {
	return Fetch(ctx, q.cache, KindCampaign, Key(KindCampaign, id), func(ctx context.Context) (*campaigns.Campaign, error) {
		return q.svc.Get(ctx, id)
	})
}

// Aggregate returns the account-wide summary.
func (q *Queries) Aggregate(ctx context.Context) (*campaigns.Summary, error) {
	return Fetch(ctx, q.cache, KindAggregate, Key(KindAggregate, ""), q.svc.Aggregate)
}

// Insights returns one campaign's KPI summary.
func (q *Queries) Insights(ctx context.Context, id string) (*campaigns.Insights, error) {
	return Fetch(ctx, q.cache, KindInsights, Key(KindInsights, id), func(ctx context.Context) (*campaigns.Insights, error) {
		return q.svc.Insights(ctx, id)
	})
}

// InvalidateCampaign drops everything cached about one campaign, plus the
// list and aggregate that include it.
func (q *Queries) InvalidateCampaign(id string) {
	q.cache.Invalidate(Key(KindCampaign, id))
	q.cache.Invalidate(Key(KindInsights, id))
	q.cache.Invalidate(Key(KindList, ""))
	q.cache.Invalidate(Key(KindAggregate, ""))
}

// OnUpdate drops the insights a live update supersedes. It has the shape of
// a stream.UpdateFunc so it can be chained into a subscription callback.
func (q *Queries) OnUpdate(u stream.Update) {
	q.cache.Invalidate(Key(KindInsights, u.EntityID))
	q.cache.Invalidate(Key(KindAggregate, ""))
}
