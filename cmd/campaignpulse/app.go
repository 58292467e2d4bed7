package main

import (
	"context"
	stderrors "errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/c360/campaignpulse/campaigns"
	"github.com/c360/campaignpulse/config"
	"github.com/c360/campaignpulse/fetch"
	"github.com/c360/campaignpulse/metric"
	"github.com/c360/campaignpulse/pkg/tlsutil"
	"github.com/c360/campaignpulse/querycache"
	"github.com/c360/campaignpulse/telemetry"
)

// app is the wired client stack shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	client   *fetch.Client
	queries  *querycache.Queries
	cache    *querycache.Cache
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := metric.NewMetricsRegistry()

	tp, shutdown, err := telemetry.Setup(ctx, cfg.TelemetryConfig())
	if err != nil {
		return nil, err
	}

	opts := []fetch.Option{
		fetch.WithPolicy(cfg.RetryPolicy()),
		fetch.WithLogger(logger),
		fetch.WithMetrics(registry),
		fetch.WithTracerProvider(tp),
		fetch.WithHeader("User-Agent", appName+"/"+Version),
	}
	if cfg.API.Token != "" {
		opts = append(opts, fetch.WithHeader("Authorization", "Bearer "+cfg.API.Token))
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(rate.Limit(cfg.API.RateLimit), cfg.API.Burst))
	}

	if !cfg.API.TLS.IsZero() {
		hc, err := tlsutil.HTTPClient(cfg.API.TLS)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		opts = append(opts, fetch.WithHTTPClient(hc))
	}

	client, err := fetch.NewClient(cfg.API.BaseURL, opts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	qc, err := querycache.New(ctx, cfg.QueryCache(),
		querycache.WithLogger(logger),
		querycache.WithMetrics(registry))
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		client:   client,
		queries:  querycache.NewQueries(campaigns.NewService(client), qc),
		cache:    qc,
		shutdown: shutdown,
	}, nil
}

// Close releases the cache and flushes pending spans.
func (a *app) Close(ctx context.Context) error {
	return stderrors.Join(a.cache.Close(), a.shutdown(ctx))
}
