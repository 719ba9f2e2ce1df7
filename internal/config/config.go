// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's error kinds.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string. Empty selects the
	// in-memory stores (useful for local runs and tests).
	DatabaseURL string `koanf:"database_url"`

	// RiotAPIKey authenticates outbound calls to the match source API.
	RiotAPIKey string `koanf:"riot_api_key"`

	// RiotRegionalURL is the base URL of the regional routing host
	// (match-v5 endpoints). RiotPlatformURL is the platform routing host
	// (league-v4, summoner-v4 endpoints).
	RiotRegionalURL string `koanf:"riot_regional_url"`
	RiotPlatformURL string `koanf:"riot_platform_url"`

	// RateLimitRequests and RateLimitWindowSeconds describe the upstream
	// quota: at most RateLimitRequests calls per window.
	RateLimitRequests      int `koanf:"rate_limit_requests"`
	RateLimitWindowSeconds int `koanf:"rate_limit_window_seconds"`

	// MaxFetchAttempts bounds retries of rate-limited or transient failures.
	MaxFetchAttempts int `koanf:"max_fetch_attempts"`

	// FetchParallelism caps concurrent outbound calls during a run.
	FetchParallelism int `koanf:"fetch_parallelism"`

	// Aggregation seeding bounds.
	PagesToScan      int `koanf:"pages_to_scan"`
	MatchesPerPlayer int `koanf:"matches_per_player"`
	MaxPlayers       int `koanf:"max_players"`

	// DedupeSize bounds the processed-match-id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultQueueID is used when a trigger omits the queue (420 = ranked solo).
	DefaultQueueID int `koanf:"default_queue_id"`

	// TriggerToken guards the manual aggregation endpoint. Empty means the
	// endpoint is not configured and rejects every request.
	TriggerToken string `koanf:"trigger_token"`

	// SchedulerIntervalMinutes drives periodic full recomputes; 0 disables
	// the scheduler. SchedulerChampions lists the champions to recompute.
	SchedulerIntervalMinutes int      `koanf:"scheduler_interval_minutes"`
	SchedulerChampions       []string `koanf:"scheduler_champions"`

	// MaxTopN caps the n accepted by ranking queries.
	MaxTopN int `koanf:"max_top_n"`

	// LPTrackedPUUIDs lists players whose league points are sampled
	// periodically; LPRefreshIntervalMinutes drives the sampling. Either
	// being empty/zero disables the refresher.
	LPTrackedPUUIDs          []string `koanf:"lp_tracked_puuids"`
	LPRefreshIntervalMinutes int      `koanf:"lp_refresh_interval_minutes"`
}

// New creates a Config with defaults. Load layers optional file and env
// sources on top of these values.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		RiotRegionalURL:          "https://europe.api.riotgames.com",
		RiotPlatformURL:          "https://euw1.api.riotgames.com",
		RateLimitRequests:        100,
		RateLimitWindowSeconds:   120,
		MaxFetchAttempts:         4,
		FetchParallelism:         runtime.NumCPU() * 2,
		PagesToScan:              1,
		MatchesPerPlayer:         5,
		MaxPlayers:               40,
		DedupeSize:               100_000,
		DefaultQueueID:           420,
		MaxTopN:                  10,
		LPRefreshIntervalMinutes: 15,
	}
}
