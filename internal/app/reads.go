package service

import (
	"context"

	"github.com/zerox80/riftstats/internal/adapters/repository"
)

// Read surface consumed by the HTTP layer. All reads go against the
// published leaderboards, never the live counters, so a run in progress
// cannot bleed half-merged numbers into responses.

// TopItems returns the published item ranking for a scope.
func (s *Service) TopItems(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.ItemKey], error) {
	return s.items.Published(ctx, scope, n)
}

// TopRunes returns the published rune page ranking for a scope.
func (s *Service) TopRunes(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.RuneKey], error) {
	return s.runes.Published(ctx, scope, n)
}

// TopSpells returns the published spell pair ranking for a scope.
func (s *Service) TopSpells(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.SpellPairKey], error) {
	return s.spells.Published(ctx, scope, n)
}
