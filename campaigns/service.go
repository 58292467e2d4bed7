package campaigns

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/fetch"
)

// Resource labels used for logs, metrics and spans
const (
	ResourceList      = "campaigns.list"
	ResourceGet       = "campaigns.get"
	ResourceAggregate = "campaigns.aggregate"
	ResourceInsights  = "campaigns.insights"
)

// ListPath is the collection endpoint.
const ListPath = "/campaigns"

// AggregatePath is the account-wide insights endpoint.
const AggregatePath = "/campaigns/insights"

// CampaignPath returns the escaped path of one campaign.
func CampaignPath(id string) string {
	return ListPath + "/" + url.PathEscape(id)
}

// InsightsPath returns the escaped path of one campaign's insights.
func InsightsPath(id string) string {
	return CampaignPath(id) + "/insights"
}

// StreamPath returns the escaped path of one campaign's live insights stream.
func StreamPath(id string) string {
	return InsightsPath(id) + "/stream"
}

// Service exposes one call per campaign resource kind. It builds addresses
// and forwards the caller's context; retries happen in the fetch client and
// failures are returned unchanged.
type Service struct {
	client *fetch.Client
}

// NewService creates a Service over client.
func NewService(client *fetch.Client) *Service {
	return &Service{client: client}
}

// List returns every campaign.
func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	resp, err := fetch.DoJSON[ListResponse](ctx, s.client, fetch.Request{
		Path:     ListPath,
		Resource: ResourceList,
	})
	if err != nil {
		return nil, err
	}
	if resp.Campaigns == nil {
		return []Campaign{}, nil
	}
	return resp.Campaigns, nil
}

// Get returns one campaign by id.
func (s *Service) Get(ctx context.Context, id string) (*Campaign, error) {
	if err := validateID(id, "Get"); err != nil {
		return nil, err
	}
	campaign, err := fetch.DoJSON[Campaign](ctx, s.client, fetch.Request{
		Path:     CampaignPath(id),
		Resource: ResourceGet,
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// Aggregate returns the account-wide summary.
func (s *Service) Aggregate(ctx context.Context) (*Summary, error) {
	summary, err := fetch.DoJSON[Summary](ctx, s.client, fetch.Request{
		Path:     AggregatePath,
		Resource: ResourceAggregate,
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Insights returns the KPI summary of one campaign.
func (s *Service) Insights(ctx context.Context, id string) (*Insights, error) {
	if err := validateID(id, "Insights"); err != nil {
		return nil, err
	}
	resp, err := fetch.DoJSON[InsightsResponse](ctx, s.client, fetch.Request{
		Path:     InsightsPath(id),
		Resource: ResourceInsights,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Insights, nil
}

func validateID(id, method string) error {
	switch strings.TrimSpace(id) {
	case "":
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Service", method, "campaign id is required")
	case ".", "..":
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Service", method,
			fmt.Sprintf("campaign id %q is not addressable", id))
	}
	return nil
}

// ValidateID reports whether id can address a single campaign.
func ValidateID(id string) error {
	return validateID(id, "ValidateID")
}
