package service

import (
	"github.com/zerox80/riftstats/internal/adapters/repository"
)

// tally accumulates counter deltas for one statistic kind during a run,
// grouped by scope. It is confined to the run goroutine; the stores take
// care of cross-run concurrency.
type tally[K repository.VariantKey] struct {
	counts map[repository.StatKey]map[K]*tallyCount
}

type tallyCount struct {
	games int64
	wins  int64
}

func newTally[K repository.VariantKey]() *tally[K] {
	return &tally[K]{counts: make(map[repository.StatKey]map[K]*tallyCount)}
}

func (t *tally[K]) add(scope repository.StatKey, key K, won bool) {
	bucket, ok := t.counts[scope]
	if !ok {
		bucket = make(map[K]*tallyCount)
		t.counts[scope] = bucket
	}
	c, ok := bucket[key]
	if !ok {
		c = &tallyCount{}
		bucket[key] = c
	}
	c.games++
	if won {
		c.wins++
	}
}

func (t *tally[K]) rows(scope repository.StatKey) []repository.StatRow[K] {
	bucket := t.counts[scope]
	rows := make([]repository.StatRow[K], 0, len(bucket))
	for key, c := range bucket {
		rows = append(rows, repository.StatRow[K]{Key: key, Games: c.games, Wins: c.wins})
	}
	return rows
}

func (t *tally[K]) scopes() []repository.StatKey {
	scopes := make([]repository.StatKey, 0, len(t.counts))
	for scope := range t.counts {
		scopes = append(scopes, scope)
	}
	return scopes
}

// byPatch groups the tallied rows by patch so a full recompute can replace
// one {champion, patch, queue} scope at a time.
func (t *tally[K]) byPatch() map[string]map[repository.StatKey][]repository.StatRow[K] {
	out := make(map[string]map[repository.StatKey][]repository.StatRow[K])
	for scope := range t.counts {
		group, ok := out[scope.Patch]
		if !ok {
			group = make(map[repository.StatKey][]repository.StatRow[K])
			out[scope.Patch] = group
		}
		group[scope] = t.rows(scope)
	}
	return out
}
