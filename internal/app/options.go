package service

import (
	"context"

	"github.com/zerox80/riftstats/internal/domain/dedupe"
	"github.com/zerox80/riftstats/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDeduper replaces the match-id deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithSeedTiers sets the ladder slices players are seeded from.
func WithSeedTiers(tiers []TierDivision) Option {
	return func(s *Service) {
		if len(tiers) > 0 {
			s.seedTiers = tiers
		}
	}
}

// WithPagesToScan sets how many ladder pages each slice contributes.
func WithPagesToScan(pages int) Option {
	return func(s *Service) {
		if pages > 0 {
			s.pagesToScan = pages
		}
	}
}

// WithMaxPlayers caps the number of seeded players per run.
func WithMaxPlayers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPlayers = n
		}
	}
}

// WithMatchesPerPlayer caps the match history pulled per player.
func WithMatchesPerPlayer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.matchesPerPlayer = n
		}
	}
}

// WithParallelism bounds the fetch fan-out.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithTopN sets the published ranking depth.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLifecycle ties background runs started by Trigger to ctx, so
// canceling it (e.g. on shutdown) stops them at the next fetch boundary.
func WithLifecycle(ctx context.Context) Option {
	return func(s *Service) {
		if ctx != nil {
			s.lifecycle = ctx
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
