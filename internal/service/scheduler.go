package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Expirer settles confirmed bookings of events that have taken place.
type Expirer interface {
	ExpireElapsed(ctx context.Context) ([]model.Booking, error)
}

// Scheduler runs an Expirer on a fixed interval.
type Scheduler struct {
	expirer  Expirer
	interval time.Duration
}

func NewScheduler(e Expirer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{expirer: e, interval: interval}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	log := logger.L().WithField("component", "expiry-scheduler")
	passed, err := s.expirer.ExpireElapsed(ctx)
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Error("expiring elapsed bookings failed")
	}
	if len(passed) > 0 {
		log.WithField("count", len(passed)).Info("bookings moved to passed")
	}
}
