package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: APISURFACE_[SECTION]_[KEY] (e.g., APISURFACE_API_INCLUDES). List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	// API
	setEnvList(&cfg.API.Includes, "APISURFACE_API_INCLUDES")
	setEnvList(&cfg.API.Excludes, "APISURFACE_API_EXCLUDES")
	setEnvBool(&cfg.API.RequireIdentifiers, "APISURFACE_API_REQUIRE_IDENTIFIERS")
	setEnvString(&cfg.API.Granularity, "APISURFACE_API_GRANULARITY")

	// Scan
	setEnvList(&cfg.Scan.Roots, "APISURFACE_SCAN_ROOTS")
	setEnvBool(&cfg.Scan.IncludeTests, "APISURFACE_SCAN_INCLUDE_TESTS")

	// History
	setEnvBool(&cfg.History.Enabled, "APISURFACE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "APISURFACE_HISTORY_PATH")
	setEnvString(&cfg.History.Project, "APISURFACE_HISTORY_PROJECT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "APISURFACE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RescansPerSecond, "APISURFACE_WATCH_RESCANS_PER_SECOND")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "APISURFACE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "APISURFACE_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "APISURFACE_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = out
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
