package lptrack

import (
	"time"

	"github.com/zerox80/riftstats/pkg/logger"
)

// Option configures the Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}
