package service

import (
	"context"
	"errors"
	"time"

	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/logger"
)

// Scheduler periodically runs full recomputes for a fixed champion list,
// correcting any drift incremental runs accumulate. Runs it cannot start
// because the scope is busy are skipped, not queued.
type Scheduler struct {
	service   *Service
	champions []string
	queueID   int
	interval  time.Duration
	log       logger.Logger
}

// NewScheduler creates a scheduler over the given service.
func NewScheduler(svc *Service, champions []string, interval time.Duration) *Scheduler {
	return &Scheduler{
		service:   svc,
		champions: champions,
		queueID:   model.QueueIDSolo,
		interval:  interval,
		log:       logger.Named("scheduler"),
	}
}

// Run blocks until ctx is canceled, firing one sweep per interval. Call
// it from its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.champions) == 0 || s.interval <= 0 {
		s.log.Info(ctx, "scheduler disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "scheduler started",
		logger.Int("champions", len(s.champions)),
		logger.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	for _, champion := range s.champions {
		if ctx.Err() != nil {
			return
		}
		req := RunRequest{Champion: champion, QueueID: s.queueID, Full: true}
		if _, err := s.service.Aggregate(ctx, req); err != nil {
			if errors.Is(err, ErrRunInFlight) {
				s.log.Debug(ctx, "scheduled recompute skipped, scope busy",
					logger.String("champion", champion))
				continue
			}
			s.log.Warn(ctx, "scheduled recompute failed",
				logger.String("champion", champion),
				logger.Error(err))
		}
	}
}
