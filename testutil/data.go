package testutil

import (
	"net/http"
)

// Campaign fixtures in API wire form.
var (
	CampaignSpring = map[string]any{
		"id":           "42",
		"name":         "Spring Sale",
		"status":       "active",
		"objective":    "conversions",
		"daily_budget": 250.0,
		"start_time":   "2024-03-01T00:00:00Z",
		"updated_at":   "2024-03-10T08:00:00Z",
	}

	CampaignBrand = map[string]any{
		"id":           "7",
		"name":         "brand awareness",
		"status":       "paused",
		"objective":    "reach",
		"daily_budget": 90.5,
		"updated_at":   "2024-02-01T08:00:00Z",
	}

	CampaignHoliday = map[string]any{
		"id":           "c/3",
		"name":         "Holiday Push",
		"status":       "archived",
		"daily_budget": 500.0,
		"start_time":   "2023-11-20T00:00:00Z",
		"end_time":     "2023-12-31T23:59:59Z",
		"updated_at":   "2024-01-02T08:00:00Z",
	}
)

// Campaigns returns the fixture list in API order.
func Campaigns() []any {
	return []any{CampaignSpring, CampaignBrand, CampaignHoliday}
}

// InsightsFixture is the per-campaign insights body for campaign 42.
var InsightsFixture = map[string]any{
	"campaign_id": "42",
	"insights": map[string]any{
		"impressions": 12000,
		"clicks":      340,
		"conversions": 21,
		"reach":       9100,
		"spend":       187.5,
	},
}

// AggregateFixture is the account-wide summary body.
var AggregateFixture = map[string]any{
	"campaign_count": 3,
	"active_count":   1,
	"insights": map[string]any{
		"impressions": 50000,
		"clicks":      1200,
		"conversions": 80,
		"reach":       31000,
		"spend":       940.25,
	},
}

// ScriptCampaignAPI scripts the standard read endpoints with fixture data.
func ScriptCampaignAPI(s *ScriptedServer) {
	s.Script("/campaigns", JSON(http.StatusOK, map[string]any{"campaigns": Campaigns()}))
	s.Script("/campaigns/42", JSON(http.StatusOK, CampaignSpring))
	s.Script("/campaigns/7", JSON(http.StatusOK, CampaignBrand))
	s.Script("/campaigns/insights", JSON(http.StatusOK, AggregateFixture))
	s.Script("/campaigns/42/insights", JSON(http.StatusOK, InsightsFixture))
}
