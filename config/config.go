package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/c360/campaignpulse/errors"
	"github.com/c360/campaignpulse/pkg/cache"
	"github.com/c360/campaignpulse/pkg/retry"
	"github.com/c360/campaignpulse/pkg/tlsutil"
	"github.com/c360/campaignpulse/querycache"
	"github.com/c360/campaignpulse/stream"
	"github.com/c360/campaignpulse/telemetry"
)

// Config is the complete campaignpulse configuration
type Config struct {
	API       APIConfig       `json:"api"       envPrefix:"API_"`
	Retry     RetryConfig     `json:"retry"     envPrefix:"RETRY_"`
	Stream    StreamConfig    `json:"stream"    envPrefix:"STREAM_"`
	Cache     CacheConfig     `json:"cache"     envPrefix:"CACHE_"`
	Metrics   MetricsConfig   `json:"metrics"   envPrefix:"METRICS_"`
	Telemetry TelemetryConfig `json:"telemetry" envPrefix:"TELEMETRY_"`
	Log       LogConfig       `json:"log"       envPrefix:"LOG_"`
}

// APIConfig locates the campaign API
type APIConfig struct {
	BaseURL   string  `json:"base_url"        env:"BASE_URL"`
	Token     string  `json:"token,omitempty" env:"TOKEN"`
	RateLimit float64 `json:"rate_limit"      env:"RATE_LIMIT"` // Requests per second, 0 disables pacing
	Burst     int     `json:"burst"           env:"BURST"`

	TLS tlsutil.ClientConfig `json:"tls" envPrefix:"TLS_"`
}

// RetryConfig mirrors retry.Policy
type RetryConfig struct {
	RateLimitRetries int           `json:"rate_limit_retries" env:"RATE_LIMIT_RETRIES"`
	RateLimitDelay   time.Duration `json:"rate_limit_delay"   env:"RATE_LIMIT_DELAY"`
	NetworkRetries   int           `json:"network_retries"    env:"NETWORK_RETRIES"`
	NetworkDelay     time.Duration `json:"network_delay"      env:"NETWORK_DELAY"`
	RetryAfterField  string        `json:"retry_after_field"  env:"RETRY_AFTER_FIELD"`
	Unit             time.Duration `json:"unit"               env:"UNIT"`
	MaxWait          time.Duration `json:"max_wait"           env:"MAX_WAIT"`
}

// StreamConfig mirrors stream.Policy
type StreamConfig struct {
	MaxReconnects  int           `json:"max_reconnects"  env:"MAX_RECONNECTS"`
	ReconnectDelay time.Duration `json:"reconnect_delay" env:"RECONNECT_DELAY"`
}

// CacheConfig configures the query cache
type CacheConfig struct {
	Enabled         bool             `json:"enabled"          env:"ENABLED"`
	MaxEntries      int              `json:"max_entries"      env:"MAX_ENTRIES"`
	TTL             time.Duration    `json:"ttl"              env:"TTL"`
	CleanupInterval time.Duration    `json:"cleanup_interval" env:"CLEANUP_INTERVAL"`
	StaleAfter      StaleAfterConfig `json:"stale_after"      envPrefix:"STALE_AFTER_"`
}

// StaleAfterConfig holds the freshness window per resource kind
type StaleAfterConfig struct {
	List      time.Duration `json:"list"      env:"LIST"`
	Campaign  time.Duration `json:"campaign"  env:"CAMPAIGN"`
	Aggregate time.Duration `json:"aggregate" env:"AGGREGATE"`
	Insights  time.Duration `json:"insights"  env:"INSIGHTS"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"ENABLED"`
	Port    int    `json:"port"    env:"PORT"`
	Path    string `json:"path"    env:"PATH"`
}

// TelemetryConfig configures OTLP trace export
type TelemetryConfig struct {
	Enabled     bool    `json:"enabled"      env:"ENABLED"`
	Endpoint    string  `json:"endpoint"     env:"ENDPOINT"`
	ServiceName string  `json:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `json:"sample_ratio" env:"SAMPLE_RATIO"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `json:"level"  env:"LEVEL"`  // debug, info, warn, error
	Format string `json:"format" env:"FORMAT"` // json or text
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Default returns the built-in configuration every layer is merged onto.
func Default() *Config {
	rp := retry.DefaultPolicy()
	sp := stream.DefaultPolicy()
	qc := querycache.DefaultConfig()
	tc := telemetry.DefaultConfig()

	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Burst:   1,
		},
		Retry: RetryConfig{
			RateLimitRetries: rp.RateLimit.MaxRetries,
			RateLimitDelay:   rp.RateLimit.Delay,
			NetworkRetries:   rp.Network.MaxRetries,
			NetworkDelay:     rp.Network.Delay,
			RetryAfterField:  rp.RetryAfterField,
			Unit:             rp.Unit,
			MaxWait:          rp.MaxWait,
		},
		Stream: StreamConfig{
			MaxReconnects:  sp.MaxReconnects,
			ReconnectDelay: sp.Delay,
		},
		Cache: CacheConfig{
			Enabled:         qc.Store.Enabled,
			MaxEntries:      qc.Store.MaxEntries,
			TTL:             qc.Store.TTL,
			CleanupInterval: qc.Store.CleanupInterval,
			StaleAfter: StaleAfterConfig{
				List:      qc.StaleAfter.List,
				Campaign:  qc.StaleAfter.Campaign,
				Aggregate: qc.StaleAfter.Aggregate,
				Insights:  qc.StaleAfter.Insights,
			},
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Telemetry: TelemetryConfig{
			Enabled:     tc.Enabled,
			ServiceName: tc.ServiceName,
			SampleRatio: tc.SampleRatio,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// RetryPolicy returns the fetch client's retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		RateLimit:       retry.Budget{MaxRetries: c.Retry.RateLimitRetries, Delay: c.Retry.RateLimitDelay},
		Network:         retry.Budget{MaxRetries: c.Retry.NetworkRetries, Delay: c.Retry.NetworkDelay},
		RetryAfterField: c.Retry.RetryAfterField,
		Unit:            c.Retry.Unit,
		MaxWait:         c.Retry.MaxWait,
	}
}

// StreamPolicy returns the subscription reconnect policy.
func (c *Config) StreamPolicy() stream.Policy {
	return stream.Policy{MaxReconnects: c.Stream.MaxReconnects, Delay: c.Stream.ReconnectDelay}
}

// QueryCache returns the query cache configuration.
func (c *Config) QueryCache() querycache.Config {
	return querycache.Config{
		Store: cache.Config{
			Enabled:         c.Cache.Enabled,
			MaxEntries:      c.Cache.MaxEntries,
			TTL:             c.Cache.TTL,
			CleanupInterval: c.Cache.CleanupInterval,
		},
		StaleAfter: querycache.StaleAfter{
			List:      c.Cache.StaleAfter.List,
			Campaign:  c.Cache.StaleAfter.Campaign,
			Aggregate: c.Cache.StaleAfter.Aggregate,
			Insights:  c.Cache.StaleAfter.Insights,
		},
	}
}

// TelemetryConfig returns the trace export configuration.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:     c.Telemetry.Enabled,
		Endpoint:    c.Telemetry.Endpoint,
		ServiceName: c.Telemetry.ServiceName,
		SampleRatio: c.Telemetry.SampleRatio,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(errors.ErrInvalidConfig, fmt.Sprintf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.RateLimit < 0 {
		return invalid(errors.ErrInvalidConfig, "api.rate_limit cannot be negative")
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		return invalid(errors.ErrInvalidConfig, "api.burst must be at least 1 when rate_limit is set")
	}

	if err := c.API.TLS.Validate(); err != nil {
		return err
	}

	if err := c.RetryPolicy().Validate(); err != nil {
		return invalid(err, "retry")
	}
	if err := c.StreamPolicy().Validate(); err != nil {
		return invalid(err, "stream")
	}

	qc := c.QueryCache()
	if err := qc.Store.Validate(); err != nil {
		return err
	}
	if err := qc.StaleAfter.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return invalid(errors.ErrInvalidConfig, fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid(errors.ErrInvalidConfig, fmt.Sprintf("metrics.path must start with '/', got %q", c.Metrics.Path))
		}
	}

	if err := c.TelemetryConfig().Validate(); err != nil {
		return err
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return invalid(errors.ErrInvalidConfig, fmt.Sprintf("log.level must be one of %v, got %q", logLevels, c.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return invalid(errors.ErrInvalidConfig, fmt.Sprintf("log.format must be one of %v, got %q", logFormats, c.Log.Format))
	}

	return nil
}

// String returns a JSON representation of the config with the API token
// redacted.
func (c *Config) String() string {
	redacted := *c
	if redacted.API.Token != "" {
		redacted.API.Token = "REDACTED"
	}
	data, _ := json.MarshalIndent(redacted, "", "  ")
	return string(data)
}

func invalid(err error, action string) error {
	return errors.WrapInvalid(err, "config", "Validate", action)
}
