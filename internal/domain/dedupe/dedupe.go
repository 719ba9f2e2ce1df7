// Package dedupe tracks processed match ids so a match surfacing through
// several players' histories is folded into the statistics only once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen match ids to ensure at-most-once merging.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen, false if newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen set so the match can be retried.
	// Use it when a match was marked as seen but its merge failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO eviction ring.
// maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, max(d.maxSize, 0))
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		// Evict the oldest recorded id.
		oldest := d.order[d.head]
		delete(d.seen, oldest)
		d.order[d.head] = id
		d.head = (d.head + 1) % d.maxSize
	} else {
		d.order = append(d.order, id)
		d.size.Add(1)
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
	// The ring slot stays occupied until eviction reaches it; a stale slot
	// only causes a harmless no-op delete.
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
