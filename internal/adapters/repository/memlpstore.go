package repository

import (
	"context"
	"sync"
	"time"

	"github.com/zerox80/riftstats/pkg/metrics"
)

// MemLPStore is the in-memory LPStore. Samples are kept unordered and
// scanned on read; the boundary lookups do not rely on insertion order.
type MemLPStore struct {
	mu      sync.RWMutex
	samples map[lpKey][]LPSample
}

type lpKey struct {
	puuid     string
	queueType string
}

// NewMemLPStore creates an empty store.
func NewMemLPStore() *MemLPStore {
	return &MemLPStore{samples: make(map[lpKey][]LPSample)}
}

// Insert implements LPStore.
func (s *MemLPStore) Insert(_ context.Context, samples []LPSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		k := lpKey{puuid: sample.PUUID, queueType: sample.QueueType}
		s.samples[k] = append(s.samples[k], sample)
		metrics.RecordLpSample()
	}
	return nil
}

// LatestBefore implements LPStore.
func (s *MemLPStore) LatestBefore(_ context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best LPSample
	found := false
	for _, sample := range s.samples[lpKey{puuid: puuid, queueType: queueType}] {
		if !sample.RecordedAt.Before(t) {
			continue
		}
		if !found || sample.RecordedAt.After(best.RecordedAt) {
			best = sample
			found = true
		}
	}
	return best, found, nil
}

// EarliestAtOrAfter implements LPStore.
func (s *MemLPStore) EarliestAtOrAfter(_ context.Context, puuid, queueType string, t time.Time) (LPSample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best LPSample
	found := false
	for _, sample := range s.samples[lpKey{puuid: puuid, queueType: queueType}] {
		if sample.RecordedAt.Before(t) {
			continue
		}
		if !found || sample.RecordedAt.Before(best.RecordedAt) {
			best = sample
			found = true
		}
	}
	return best, found, nil
}
