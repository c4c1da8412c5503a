// Package config loads runtime-wide defaults: concurrency and halt-timeout
// bounds applied when an entry point does not pass explicit scope.Options,
// and toggles for the observability backends in observe/metrics and
// observe/otel. Precedence is defaults -> TOML file -> environment
// variables, matching the pack's own config-loading convention.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds runtime-wide defaults read once at process startup.
type Config struct {
	Runtime  RuntimeConfig  `toml:"runtime"`
	Observer ObserverConfig `toml:"observer"`
}

// RuntimeConfig bounds root scopes that don't set their own scope.Options.
type RuntimeConfig struct {
	DefaultMaxConcurrency int           `toml:"default_max_concurrency"`
	DefaultHaltTimeout    time.Duration `toml:"default_halt_timeout"`
}

// ObserverConfig toggles the observability backends.
type ObserverConfig struct {
	MetricsEnabled bool   `toml:"metrics_enabled"`
	MetricsAddr    string `toml:"metrics_addr"`
	TracingEnabled bool   `toml:"tracing_enabled"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

// Default returns a Config with every field set to its built-in default.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			DefaultMaxConcurrency: 0, // 0 == unbounded
			DefaultHaltTimeout:    30 * time.Second,
		},
		Observer: ObserverConfig{
			MetricsEnabled: false,
			MetricsAddr:    ":9090",
			TracingEnabled: false,
			OTLPEndpoint:   "localhost:4317",
		},
	}
}

// Load reads config: defaults -> TOML file at path (missing file is not an
// error) -> environment variable overrides (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "weave.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	if v := os.Getenv("WEAVE_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runtime.DefaultMaxConcurrency = n
		}
	}
	if v := os.Getenv("WEAVE_HALT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Runtime.DefaultHaltTimeout = d
		}
	}
	if v := os.Getenv("WEAVE_METRICS_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.MetricsEnabled = true
	}
	if v := os.Getenv("WEAVE_METRICS_ADDR"); v != "" {
		cfg.Observer.MetricsAddr = v
	}
	if v := os.Getenv("WEAVE_TRACING_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.TracingEnabled = true
	}
	if v := os.Getenv("WEAVE_OTLP_ENDPOINT"); v != "" {
		cfg.Observer.OTLPEndpoint = v
	}

	return cfg
}
