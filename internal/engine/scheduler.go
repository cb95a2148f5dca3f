package engine

import (
	"context"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/logger"
)

// Refresher re-queries the window manager
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier publishes state to presentation consumers when it changed
type Notifier interface {
	MaybeNotify() bool
}

// Scheduler decides when dirty signals turn into queries.
//
// Immediate requests are served as soon as they are seen, including while a
// debounced burst is settling. Debounced requests fire once window has passed
// since the most recent event, so a burst of events costs one query.
type Scheduler struct {
	signal   *DirtySignal
	query    Refresher
	notifier Notifier
	window   time.Duration
}

// NewScheduler creates a debounce scheduler
func NewScheduler(signal *DirtySignal, query Refresher, notifier Notifier, window time.Duration) *Scheduler {
	return &Scheduler{
		signal:   signal,
		query:    query,
		notifier: notifier,
		window:   window,
	}
}

// Run blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.WithComponent("scheduler")
	log.Debug().Dur("debounce_window", s.window).Msg("Scheduler started")
	defer log.Debug().Msg("Scheduler stopped")

	for {
		if !s.signal.Wait(ctx) {
			return
		}
		s.settle(ctx)
	}
}

// settle runs until the current dirty signal has been served
func (s *Scheduler) settle(ctx context.Context) {
	for ctx.Err() == nil {
		d, hold := s.signal.take(s.window)
		switch d {
		case decisionIdle:
			return
		case decisionFire:
			s.refresh(ctx)
			return
		case decisionHold:
			if !s.signal.WaitTimeout(ctx, hold) {
				return
			}
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	// Failures are recorded in shared state by the refresher; the next
	// dirty signal retries.
	if err := s.query.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.WithComponent("scheduler").Debug().Err(err).Msg("Refresh failed")
	}
	if ctx.Err() != nil {
		return
	}
	s.notifier.MaybeNotify()
}
