// Package repository defines the statistic store interfaces and their
// in-memory and Postgres implementations. Three stores share one generic
// shape: a counter table keyed by (scope, variant) plus a published
// leaderboard table holding the ranked top rows per scope.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/zerox80/riftstats/internal/domain/model"
)

// VariantKey is the per-store key type: an item set, a rune page or a
// spell pair. Variant returns a stable textual form used for storage and
// as the final ordering tie-break.
type VariantKey interface {
	comparable
	Variant() string
}

// StatKey identifies one aggregation scope.
type StatKey struct {
	Champion string
	Role     model.Role
	Patch    string
	QueueID  int
}

// StatRow is one counter row within a scope.
type StatRow[K VariantKey] struct {
	Key   K
	Games int64
	Wins  int64
}

// CounterStore provides additive counter upserts and ranked reads for one
// statistic kind.
type CounterStore[K VariantKey] interface {
	// Merge adds the given counts into the scope's counters. Rows for
	// unknown variants are created; existing rows accumulate. Merging the
	// same batch under different match ids is additive; replaying a batch
	// is the caller's responsibility to prevent.
	Merge(ctx context.Context, scope StatKey, rows []StatRow[K]) error

	// TopN returns up to n counter rows for the scope ordered by games
	// desc, wins desc, then variant asc. Returns ErrInvalidLimit when
	// n < 1.
	TopN(ctx context.Context, scope StatKey, n int) ([]StatRow[K], error)

	// ReplaceScope transactionally replaces every counter row for a
	// {champion, patch, queueID} scope across all roles with the given
	// per-scope rows. Used by full recomputes; readers never observe the
	// scope empty mid-replace.
	ReplaceScope(ctx context.Context, champion, patch string, queueID int, rows map[StatKey][]StatRow[K]) error

	// Publish atomically replaces the scope's published leaderboard with
	// the given ranked rows. Readers never observe a partially written
	// scope.
	Publish(ctx context.Context, scope StatKey, rows []StatRow[K]) error

	// Published returns the scope's published leaderboard in rank order,
	// capped at n rows.
	Published(ctx context.Context, scope StatKey, n int) ([]StatRow[K], error)

	// Scopes lists every scope with at least one counter row, used by
	// full recomputes.
	Scopes(ctx context.Context) ([]StatKey, error)
}

// LPSample is one point-in-time league point observation.
type LPSample struct {
	PUUID        string
	QueueType    string
	Tier         string
	Division     string
	LeaguePoints int
	RecordedAt   time.Time
}

// LPStore persists LP samples and answers the two boundary lookups the
// trajectory queries need. Samples are not assumed to arrive in timestamp
// order.
type LPStore interface {
	Insert(ctx context.Context, samples []LPSample) error

	// LatestBefore returns the newest sample strictly before t, with
	// false when no such sample exists.
	LatestBefore(ctx context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error)

	// EarliestAtOrAfter returns the oldest sample at or after t, with
	// false when no such sample exists.
	EarliestAtOrAfter(ctx context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error)
}

// SortRows orders rows by games desc, wins desc, variant asc. The variant
// tie-break keeps publishes deterministic across recomputes.
func SortRows[K VariantKey](rows []StatRow[K]) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Games != rows[j].Games {
			return rows[i].Games > rows[j].Games
		}
		if rows[i].Wins != rows[j].Wins {
			return rows[i].Wins > rows[j].Wins
		}
		return rows[i].Key.Variant() < rows[j].Key.Variant()
	})
}
