package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/errors"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	}
	return errors.WrapInvalid(errors.ErrInvalidArgument, appName, "validateOutput",
		fmt.Sprintf("unknown output format %q", format))
}

// render writes v as indented JSON, or hands a tabwriter to table.
func (c *cli) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	if c.flags.Output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func campaignTable(tw *tabwriter.Writer, list []campaigns.Campaign) {
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tDAILY BUDGET\tSTART")
	for _, c := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
			c.ID, c.Name, c.Status, c.DailyBudget, formatTime(c.StartTime))
	}
}

func insightsRows(tw *tabwriter.Writer, in campaigns.Insights) {
	_, _ = fmt.Fprintf(tw, "Impressions\t%d\n", in.Impressions)
	_, _ = fmt.Fprintf(tw, "Reach\t%d\n", in.Reach)
	_, _ = fmt.Fprintf(tw, "Clicks\t%d\n", in.Clicks)
	_, _ = fmt.Fprintf(tw, "Conversions\t%d\n", in.Conversions)
	_, _ = fmt.Fprintf(tw, "Spend\t%.2f\n", in.Spend)
	_, _ = fmt.Fprintf(tw, "CTR\t%.2f%%\n", in.CTR()*100)
	_, _ = fmt.Fprintf(tw, "CPC\t%.2f\n", in.CPC())
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
