package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <campaign-id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				campaign, err := a.queries.Get(ctx, args[0])
				if err != nil {
					return err
				}

				return c.render(cmd.OutOrStdout(), campaign, func(tw *tabwriter.Writer) {
					_, _ = fmt.Fprintf(tw, "ID\t%s\n", campaign.ID)
					_, _ = fmt.Fprintf(tw, "Name\t%s\n", campaign.Name)
					_, _ = fmt.Fprintf(tw, "Status\t%s\n", campaign.Status)
					_, _ = fmt.Fprintf(tw, "Objective\t%s\n", campaign.Objective)
					_, _ = fmt.Fprintf(tw, "Daily budget\t%.2f\n", campaign.DailyBudget)
					_, _ = fmt.Fprintf(tw, "Start\t%s\n", formatTime(campaign.StartTime))
					_, _ = fmt.Fprintf(tw, "End\t%s\n", formatTime(campaign.EndTime))
					if !campaign.UpdatedAt.IsZero() {
						_, _ = fmt.Fprintf(tw, "Updated\t%s\n", campaign.UpdatedAt.Format(time.RFC3339))
					}
				})
			})
		},
	}
}
