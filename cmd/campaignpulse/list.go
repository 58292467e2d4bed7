package main

import (
	"context"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360/campaignpulse/campaigns"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		filter campaigns.Filter
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Example: `  campaignpulse list --status active --sort -budget
  campaignpulse list -q spring -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, desc, err := campaigns.ParseSortField(sortBy)
			if err != nil {
				return err
			}

			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.queries.List(ctx)
				if err != nil {
					return err
				}

				list = filter.Apply(list)
				campaigns.Sort(list, field, desc)

				return c.render(cmd.OutOrStdout(), list, func(tw *tabwriter.Writer) {
					campaignTable(tw, list)
				})
			})
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", "", "Only campaigns with this status")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Only campaigns whose name or id contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", string(campaigns.SortByName),
		"Sort column: name, status, budget, start, updated (prefix '-' for descending)")
	return cmd
}
