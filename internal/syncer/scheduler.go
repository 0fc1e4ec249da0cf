package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Syncer interface {
	SyncAll(ctx context.Context) (Report, error)
}

// Scheduler runs SyncAll on an interval and whenever Trigger is called. Each run
// is bounded by a timeout; a timed-out run is an ordinary failure retried next time.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	trigger  chan struct{}

	// OnResult, when set, receives the outcome of every run.
	OnResult func(Report, error)
}

func NewScheduler(syncer Syncer, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a run as soon as possible. Requests made while one is already
// pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. It syncs once immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rep, err := s.syncer.SyncAll(runCtx)

	switch {
	case errors.Is(err, ErrSyncInProgress):
		slog.Debug("sync skipped, another run in progress")
	case err != nil:
		slog.Warn("sync failed", "error", err)
	default:
		slog.Debug("sync completed", "pushed", rep.Pushed, "pulled", rep.Pulled)
	}

	if s.OnResult != nil {
		s.OnResult(rep, err)
	}
}
