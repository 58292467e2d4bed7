package campaigns

import (
	"time"
)

// Campaign status values reported by the API
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Campaign is one advertising campaign.
type Campaign struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Objective   string     `json:"objective,omitempty"`
	DailyBudget float64    `json:"daily_budget"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Insights holds KPI counters for one campaign or an aggregate.
type Insights struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Reach       int64   `json:"reach"`
	Spend       float64 `json:"spend"`
}

// CTR is the click-through rate, or 0 without impressions.
func (i Insights) CTR() float64 {
	if i.Impressions == 0 {
		return 0
	}
	return float64(i.Clicks) / float64(i.Impressions)
}

// CPC is the cost per click, or 0 without clicks.
func (i Insights) CPC() float64 {
	if i.Clicks == 0 {
		return 0
	}
	return i.Spend / float64(i.Clicks)
}

// Summary is the account-wide aggregate across campaigns.
type Summary struct {
	CampaignCount int      `json:"campaign_count"`
	ActiveCount   int      `json:"active_count"`
	Insights      Insights `json:"insights"`
}

// ListResponse is the body of GET /campaigns.
type ListResponse struct {
	Campaigns []Campaign `json:"campaigns"`
}

// InsightsResponse is the body of GET /campaigns/{id}/insights and the
// payload of each live stream frame.
type InsightsResponse struct {
	CampaignID string   `json:"campaign_id,omitempty"`
	Insights   Insights `json:"insights"`
}
