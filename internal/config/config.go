// Package config defines mapboard configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"time"
)

// Points modes.
const (
	PointsModeTiered = "tiered"
	PointsModeTable  = "table"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"in:debug,info,warn,warning,error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"in:text,json"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path" validate:"required"`

	// MapsFile is the map registry, one "url|name" per line.
	MapsFile string `koanf:"maps_file" validate:"required"`

	// Addr configures the HTTP listen address for `serve`, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// UserAgent is sent with every leaderboard request.
	UserAgent string `koanf:"user_agent" validate:"required"`

	// RequestDelayMS is the fixed pause between two leaderboard requests.
	RequestDelayMS int `koanf:"request_delay_ms" validate:"min:0"`

	// RequestTimeoutMS bounds a single leaderboard request.
	RequestTimeoutMS int `koanf:"request_timeout_ms" validate:"required|min:1"`

	// PageSize is the leaderboard page length requested from the API.
	PageSize int `koanf:"page_size" validate:"required|min:1|max:100"`

	// MaxRecords caps how many entries are fetched for one map.
	MaxRecords int `koanf:"max_records" validate:"required|min:1"`

	// SyncIntervalMinutes enables periodic sync in `serve` when > 0.
	SyncIntervalMinutes int `koanf:"sync_interval_minutes" validate:"min:0"`

	// PointsMode selects the rank-to-points mapping: tiered or table.
	PointsMode string `koanf:"points_mode" validate:"required|in:tiered,table"`

	// PointsBase is the rank-1 score of the tiered mapping.
	PointsBase float64 `koanf:"points_base"`

	// PointsTable lists points per rank (index 0 is rank 1) for table mode.
	PointsTable []float64 `koanf:"points_table"`

	// CacheEnabled turns on the HTTP view response cache.
	CacheEnabled bool `koanf:"cache_enabled"`

	// CacheSizeMB sizes the HTTP view response cache.
	CacheSizeMB int `koanf:"cache_size_mb" validate:"min:0"`
}

// New creates a Config with default values.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		DBPath:              "mapboard.db",
		MapsFile:            "maps_api_urls.txt",
		Addr:                ":9080",
		UserAgent:           "mapboard/1.0 (+https://github.com/okian/mapboard)",
		RequestDelayMS:      1500,
		RequestTimeoutMS:    30_000,
		PageSize:            100,
		MaxRecords:          10_000,
		SyncIntervalMinutes: 0,
		PointsMode:          PointsModeTiered,
		PointsBase:          40_000,
		CacheEnabled:        true,
		CacheSizeMB:         16,
	}
}

// RequestDelay returns RequestDelayMS as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// SyncInterval returns SyncIntervalMinutes as a duration; zero disables it.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}
