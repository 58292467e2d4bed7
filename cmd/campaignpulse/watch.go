package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/health"
	"github.com/c360/campaignpulse/metric"
	"github.com/c360/campaignpulse/stream"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <campaign-id>",
		Short: "Follow a campaign's live insights until interrupted",
		Long: `watch subscribes to the campaign's insights stream and prints every
update. A dropped connection is retried per the stream reconnect policy;
once that budget is spent the command exits with an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return c.watch(ctx, a, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
			})
		},
	}
}

func (c *cli) watch(ctx context.Context, a *app, id string, out, status io.Writer) error {
	mgr, err := stream.NewManager(stream.NewSSESource(a.client),
		stream.WithPolicy(a.cfg.StreamPolicy()),
		stream.WithLogger(a.logger),
		stream.WithMetrics(a.registry))
	if err != nil {
		return err
	}
	defer mgr.Close()

	g, ctx := errgroup.WithContext(ctx)

	monitor := health.NewMonitor()
	observe := monitor.Observe("insights/" + id)

	if a.cfg.Metrics.Enabled {
		srv := metric.NewServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path, a.registry)
		srv.SetHealthHandler(monitor.Handler(appName))
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	// out and status may be the same writer.
	var mu sync.Mutex
	failed := make(chan error, 1)

	h, err := mgr.Subscribe(
		func(u stream.Update) {
			a.queries.OnUpdate(u)
			mu.Lock()
			defer mu.Unlock()
			if err := c.printUpdate(out, u); err != nil {
				a.logger.Warn("Cannot print update", "entity_id", u.EntityID, "error", err)
			}
		},
		stream.OnStatus(func(st stream.Status) {
			observe(st)
			mu.Lock()
			defer mu.Unlock()
			switch st.State {
			case stream.StateReconnecting:
				_, _ = fmt.Fprintf(status, "%s: %s, reconnecting (attempt %d)\n",
					st.EntityID, errors.UserMessage(st.Err), st.Attempts+1)
			case stream.StateFailed:
				select {
				case failed <- st.Err:
				default:
				}
			}
		}),
	)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Set(id, true); err != nil {
		return err
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return fmt.Errorf("watch %s: %w", id, err)
		}
	})

	return g.Wait()
}

type updateLine struct {
	EntityID   string          `json:"entity_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Insights   json.RawMessage `json:"insights"`
}

func (c *cli) printUpdate(w io.Writer, u stream.Update) error {
	if c.flags.Output == outputJSON {
		return json.NewEncoder(w).Encode(updateLine{
			EntityID:   u.EntityID,
			ReceivedAt: u.ReceivedAt,
			Insights:   u.Insights,
		})
	}

	var in campaigns.Insights
	if err := json.Unmarshal(u.Insights, &in); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s  %s  impressions=%d clicks=%d spend=%.2f ctr=%.2f%%\n",
		u.ReceivedAt.Format(time.TimeOnly), u.EntityID,
		in.Impressions, in.Clicks, in.Spend, in.CTR()*100)
	return err
}
