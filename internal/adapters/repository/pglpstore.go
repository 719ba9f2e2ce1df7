package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zerox80/riftstats/pkg/metrics"
)

// PGLPStore is the Postgres LPStore over lp_history.
type PGLPStore struct {
	pool *pgxpool.Pool
}

// NewPGLPStore creates the store. The schema is ensured by Connect.
func NewPGLPStore(pool *pgxpool.Pool) *PGLPStore {
	return &PGLPStore{pool: pool}
}

// Insert implements LPStore.
func (s *PGLPStore) Insert(ctx context.Context, samples []LPSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sample := range samples {
		batch.Queue(`
			INSERT INTO lp_history (puuid, queue_type, tier, division, league_points, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sample.PUUID, sample.QueueType, sample.Tier, sample.Division, sample.LeaguePoints, sample.RecordedAt)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for range samples {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert lp_history: %w", err)
		}
		metrics.RecordLpSample()
	}
	return nil
}

// LatestBefore implements LPStore.
func (s *PGLPStore) LatestBefore(ctx context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error) {
	return s.boundary(ctx, `
		SELECT puuid, queue_type, tier, division, league_points, recorded_at FROM lp_history
		WHERE puuid = $1 AND queue_type = $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT 1`, puuid, queueType, t)
}

// EarliestAtOrAfter implements LPStore.
func (s *PGLPStore) EarliestAtOrAfter(ctx context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error) {
	return s.boundary(ctx, `
		SELECT puuid, queue_type, tier, division, league_points, recorded_at FROM lp_history
		WHERE puuid = $1 AND queue_type = $2 AND recorded_at >= $3
		ORDER BY recorded_at ASC
		LIMIT 1`, puuid, queueType, t)
}

func (s *PGLPStore) boundary(ctx context.Context, query, puuid, queueType string, t time.Time) (LPSample, bool, error) {
	var sample LPSample
	err := s.pool.QueryRow(ctx, query, puuid, queueType, t).Scan(
		&sample.PUUID, &sample.QueueType, &sample.Tier, &sample.Division,
		&sample.LeaguePoints, &sample.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LPSample{}, false, nil
		}
		return LPSample{}, false, fmt.Errorf("lp_history lookup: %w", err)
	}
	return sample, true, nil
}
