package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/zerox80/riftstats/pkg/metrics"
)

// MemCounterStore is the in-memory CounterStore used when no database is
// configured, and by tests. Safe for concurrent use.
type MemCounterStore[K VariantKey] struct {
	mu        sync.RWMutex
	counters  map[StatKey]map[K]*counter
	published map[StatKey][]StatRow[K]
	name      string
}

type counter struct {
	games int64
	wins  int64
}

// NewMemCounterStore creates an empty store. The name tags merge metrics.
func NewMemCounterStore[K VariantKey](name string) *MemCounterStore[K] {
	return &MemCounterStore[K]{
		counters:  make(map[StatKey]map[K]*counter),
		published: make(map[StatKey][]StatRow[K]),
		name:      name,
	}
}

// Merge implements CounterStore.
func (s *MemCounterStore[K]) Merge(_ context.Context, scope StatKey, rows []StatRow[K]) error {
	if scope.Champion == "" {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.counters[scope]
	if !ok {
		bucket = make(map[K]*counter)
		s.counters[scope] = bucket
	}
	for _, row := range rows {
		c, ok := bucket[row.Key]
		if !ok {
			c = &counter{}
			bucket[row.Key] = c
		}
		c.games += row.Games
		c.wins += row.Wins
		metrics.RecordObservationMerged(s.name)
	}
	return nil
}

// TopN implements CounterStore.
func (s *MemCounterStore[K]) TopN(_ context.Context, scope StatKey, n int) ([]StatRow[K], error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.counters[scope]
	rows := make([]StatRow[K], 0, len(bucket))
	for key, c := range bucket {
		rows = append(rows, StatRow[K]{Key: key, Games: c.games, Wins: c.wins})
	}
	SortRows(rows)
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// ReplaceScope implements CounterStore. All buckets for the champion,
// patch and queue are dropped and the fresh rows installed under one lock
// acquisition.
func (s *MemCounterStore[K]) ReplaceScope(_ context.Context, champion, patch string, queueID int, rows map[StatKey][]StatRow[K]) error {
	if champion == "" {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for scope := range s.counters {
		if scope.Champion == champion && scope.Patch == patch && scope.QueueID == queueID {
			delete(s.counters, scope)
		}
	}
	for scope, scoped := range rows {
		bucket := make(map[K]*counter, len(scoped))
		for _, row := range scoped {
			bucket[row.Key] = &counter{games: row.Games, wins: row.Wins}
		}
		s.counters[scope] = bucket
	}
	return nil
}

// Publish implements CounterStore. The scope's slice is swapped in one
// assignment under the lock, so readers see the old or the new ranking,
// never a mix.
func (s *MemCounterStore[K]) Publish(_ context.Context, scope StatKey, rows []StatRow[K]) error {
	if scope.Champion == "" {
		return ErrInvalidScope
	}
	replacement := make([]StatRow[K], len(rows))
	copy(replacement, rows)

	s.mu.Lock()
	s.published[scope] = replacement
	s.mu.Unlock()
	metrics.RecordScopePublish()
	return nil
}

// Published implements CounterStore.
func (s *MemCounterStore[K]) Published(_ context.Context, scope StatKey, n int) ([]StatRow[K], error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.published[scope]
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([]StatRow[K], len(rows))
	copy(out, rows)
	return out, nil
}

// Scopes implements CounterStore.
func (s *MemCounterStore[K]) Scopes(_ context.Context) ([]StatKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]StatKey, 0, len(s.counters))
	for scope := range s.counters {
		scopes = append(scopes, scope)
	}
	sort.Slice(scopes, func(i, j int) bool {
		a, b := scopes[i], scopes[j]
		if a.Champion != b.Champion {
			return a.Champion < b.Champion
		}
		if a.Patch != b.Patch {
			return a.Patch < b.Patch
		}
		if a.QueueID != b.QueueID {
			return a.QueueID < b.QueueID
		}
		return a.Role < b.Role
	})
	return scopes, nil
}
