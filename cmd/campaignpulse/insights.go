package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInsightsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "insights [campaign-id]",
		Short: "Show KPI summary for one campaign, or across all campaigns",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 0 {
					summary, err := a.queries.Aggregate(ctx)
					if err != nil {
						return err
					}
					return c.render(cmd.OutOrStdout(), summary, func(tw *tabwriter.Writer) {
						_, _ = fmt.Fprintf(tw, "Campaigns\t%d\n", summary.CampaignCount)
						_, _ = fmt.Fprintf(tw, "Active\t%d\n", summary.ActiveCount)
						insightsRows(tw, summary.Insights)
					})
				}

				in, err := a.queries.Insights(ctx, args[0])
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), in, func(tw *tabwriter.Writer) {
					insightsRows(tw, *in)
				})
			})
		},
	}
}
