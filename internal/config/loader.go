package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RIFTSTATS_CONFIG is set
//  3. env (prefix RIFTSTATS_)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx

	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RIFTSTATS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RIFTSTATS_ADDR, RIFTSTATS_RIOT_API_KEY, ...
	// Map env keys like RIFTSTATS_MAX_PLAYERS -> max_players (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("RIFTSTATS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "riftstats_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RateLimitRequests <= 0:
		return fmt.Errorf("%w: rate_limit_requests must be positive", ErrInvalidConfig)
	case c.RateLimitWindowSeconds <= 0:
		return fmt.Errorf("%w: rate_limit_window_seconds must be positive", ErrInvalidConfig)
	case c.MaxFetchAttempts <= 0:
		return fmt.Errorf("%w: max_fetch_attempts must be positive", ErrInvalidConfig)
	case c.FetchParallelism <= 0:
		return fmt.Errorf("%w: fetch_parallelism must be positive", ErrInvalidConfig)
	case c.MaxTopN <= 0:
		return fmt.Errorf("%w: max_top_n must be positive", ErrInvalidConfig)
	}
	return nil
}
