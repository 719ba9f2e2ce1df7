package lptrack

import (
	"context"
	"time"

	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/logger"
)

// EntrySource yields the current ranked entries for a player.
type EntrySource interface {
	LeagueEntriesByPUUID(ctx context.Context, puuid string) ([]model.LeagueEntry, error)
}

// Refresher periodically samples the league entries of a fixed player list
// into the tracker. A failed player is logged and skipped; the sweep keeps
// going so one flaky lookup cannot starve the rest of the list.
type Refresher struct {
	source   EntrySource
	tracker  *Tracker
	puuids   []string
	interval time.Duration
	log      logger.Logger
}

// NewRefresher creates a refresher over the given tracker.
func NewRefresher(source EntrySource, tracker *Tracker, puuids []string, interval time.Duration) *Refresher {
	return &Refresher{
		source:   source,
		tracker:  tracker,
		puuids:   puuids,
		interval: interval,
		log:      logger.Named("lp-refresher"),
	}
}

// Run blocks until ctx is canceled, firing one sweep per interval. Call
// it from its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	if len(r.puuids) == 0 || r.interval <= 0 {
		r.log.Info(ctx, "lp refresher disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info(ctx, "lp refresher started",
		logger.Int("players", len(r.puuids)),
		logger.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.log.Info(ctx, "lp refresher stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Refresher) sweep(ctx context.Context) {
	now := time.Now().UTC()
	for _, puuid := range r.puuids {
		if ctx.Err() != nil {
			return
		}
		entries, err := r.source.LeagueEntriesByPUUID(ctx, puuid)
		if err != nil {
			r.log.Warn(ctx, "league entry refresh failed",
				logger.String("puuid", puuid),
				logger.Error(err))
			continue
		}
		if err := r.tracker.RecordEntries(ctx, puuid, entries, now); err != nil {
			r.log.Warn(ctx, "lp sample record failed",
				logger.String("puuid", puuid),
				logger.Error(err))
		}
	}
}
