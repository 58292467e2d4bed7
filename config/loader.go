package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/c360/campaignpulse/errors"
)

// EnvPrefix prefixes every environment override, e.g.
// CAMPAIGNPULSE_API_BASE_URL or CAMPAIGNPULSE_RETRY_UNIT.
const EnvPrefix = "CAMPAIGNPULSE_"

// durationPaths lists the fields that accept duration strings in files.
var durationPaths = []string{
	"retry.rate_limit_delay",
	"retry.network_delay",
	"retry.unit",
	"retry.max_wait",
	"stream.reconnect_delay",
	"cache.ttl",
	"cache.cleanup_interval",
	"cache.stale_after.list",
	"cache.stale_after.campaign",
	"cache.stale_after.aggregate",
	"cache.stale_after.insights",
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	environ    map[string]string
	limits     fileLimits
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		limits:     defaultFileLimits(),
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvironment replaces the process environment as the override source.
// A nil map restores the process environment.
func (l *Loader) SetEnvironment(environ map[string]string) {
	l.environ = environ
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every file layer, and environment overrides, in
// that order.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	var read int64
	for _, path := range l.layers {
		rawConfig, n, err := l.loadRawJSON(path, read)
		read += n
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg, err = l.mergeFromMap(cfg, rawConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Load is a convenience for a single optional file with validation. An
// empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	l := NewLoader()
	if path != "" {
		l.AddLayer(path)
	}
	l.EnableValidation(true)
	return l.Load()
}

// loadRawJSON reads one layer as a map and returns the bytes it consumed.
func (l *Loader) loadRawJSON(path string, read int64) (map[string]any, int64, error) {
	data, err := l.limits.readLayer(path, read)
	if err != nil {
		return nil, 0, err
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, int64(len(data)), errors.WrapInvalid(err, "Loader", "loadRawJSON", "decode "+path)
	}

	if err := parseDurations(rawConfig); err != nil {
		return nil, int64(len(data)), err
	}

	return rawConfig, int64(len(data)), nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields
// present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}

	return &merged, nil
}

// applyEnvOverrides applies CAMPAIGNPULSE_* environment variables. Unset
// variables leave the merged value untouched.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: l.environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// parseDurations converts duration strings to nanoseconds for json
// unmarshaling. Numbers are taken as nanoseconds already.
func parseDurations(data map[string]any) error {
	for _, path := range durationPaths {
		keys := strings.Split(path, ".")
		parent := data
		for _, k := range keys[:len(keys)-1] {
			next, ok := parent[k].(map[string]any)
			if !ok {
				parent = nil
				break
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		leaf := keys[len(keys)-1]
		s, ok := parent[leaf].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "parseDurations", "parse "+path)
		}
		parent[leaf] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
