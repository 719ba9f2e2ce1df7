// Package lptrack answers point-in-time league point queries over the
// append-only sample history. Samples are written by the summoner refresh
// path and never mutated; callers must not assume they were inserted in
// timestamp order.
package lptrack

import (
	"context"
	"time"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/logger"
)

// Tracker wraps the LP store with the bracketing queries the trajectory
// endpoints need.
type Tracker struct {
	store repository.LPStore
	clock func() time.Time
	log   logger.Logger
}

// New creates a Tracker over the given store.
func New(store repository.LPStore, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		clock: time.Now,
		log:   logger.Named("lptrack"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordEntries appends one sample per ranked entry. Entries for
// non-ranked queues are ignored.
func (t *Tracker) RecordEntries(ctx context.Context, puuid string, entries []model.LeagueEntry, at time.Time) error {
	samples := make([]repository.LPSample, 0, len(entries))
	for _, e := range entries {
		if e.QueueType != model.QueueTypeSolo && e.QueueType != model.QueueTypeFlex {
			continue
		}
		samples = append(samples, repository.LPSample{
			PUUID:        puuid,
			QueueType:    e.QueueType,
			Tier:         e.Tier,
			Division:     e.Rank,
			LeaguePoints: e.LeaguePoints,
			RecordedAt:   at,
		})
	}
	if len(samples) == 0 {
		return nil
	}
	if err := t.store.Insert(ctx, samples); err != nil {
		return err
	}
	t.log.Debug(ctx, "recorded lp samples",
		logger.String("puuid", puuid),
		logger.Int("count", len(samples)))
	return nil
}

// LatestBefore returns the most recent sample strictly before ts.
func (t *Tracker) LatestBefore(ctx context.Context, puuid, queueType string, ts time.Time) (repository.LPSample, bool, error) {
	return t.store.LatestBefore(ctx, puuid, queueType, ts)
}

// EarliestAtOrAfter returns the oldest sample at or after ts.
func (t *Tracker) EarliestAtOrAfter(ctx context.Context, puuid, queueType string, ts time.Time) (repository.LPSample, bool, error) {
	return t.store.EarliestAtOrAfter(ctx, puuid, queueType, ts)
}

// DeltaSince reports LP gained between since and until: the difference
// between the newest sample before until and the first sample at or after
// since. When either bound has no sample the delta is unavailable and ok
// is false; an absent bound is unknown, not zero.
func (t *Tracker) DeltaSince(ctx context.Context, puuid, queueType string, since, until time.Time) (int, bool, error) {
	if until.IsZero() {
		until = t.clock()
	}
	start, ok, err := t.store.EarliestAtOrAfter(ctx, puuid, queueType, since)
	if err != nil || !ok {
		return 0, false, err
	}
	end, ok, err := t.store.LatestBefore(ctx, puuid, queueType, until)
	if err != nil || !ok {
		return 0, false, err
	}
	if end.RecordedAt.Before(start.RecordedAt) {
		return 0, false, nil
	}
	return end.LeaguePoints - start.LeaguePoints, true, nil
}
