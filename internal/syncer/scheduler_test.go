package syncer_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/syncer"
)

type syncFunc func(ctx context.Context) (syncer.Report, error)

func (f syncFunc) SyncAll(ctx context.Context) (syncer.Report, error) { return f(ctx) }

type outcome struct {
	rep syncer.Report
	err error
}

func startScheduler(t *testing.T, s *syncer.Scheduler) (<-chan outcome, context.CancelFunc, <-chan error) {
	t.Helper()

	results := make(chan outcome, 8)
	s.OnResult = func(rep syncer.Report, err error) { results <- outcome{rep, err} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Run(ctx) }()

	t.Cleanup(cancel)

	return results, cancel, done
}

func await(t *testing.T, results <-chan outcome) outcome {
	t.Helper()

	select {
	case o := <-results:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no sync run observed")
		return outcome{}
	}
}

func TestScheduler_RunsImmediatelyAndOnTrigger(t *testing.T) {
	var calls atomic.Int32

	s := syncer.NewScheduler(syncFunc(func(context.Context) (syncer.Report, error) {
		calls.Add(1)
		return syncer.Report{Pushed: 1}, nil
	}), time.Hour, time.Second)

	results, cancel, done := startScheduler(t, s)

	first := await(t, results)
	require.NoError(t, first.err)
	assert.Equal(t, 1, first.rep.Pushed)

	s.Trigger()
	await(t, results)
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_TriggerCoalesces(t *testing.T) {
	s := syncer.NewScheduler(syncFunc(func(context.Context) (syncer.Report, error) {
		return syncer.Report{}, nil
	}), time.Hour, time.Second)

	// nothing drains the channel before Run starts
	s.Trigger()
	s.Trigger()
	s.Trigger()

	results, _, _ := startScheduler(t, s)

	await(t, results)
	await(t, results)

	select {
	case <-results:
		t.Fatal("queued triggers were not coalesced")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_RunIsBoundedByTimeout(t *testing.T) {
	s := syncer.NewScheduler(syncFunc(func(ctx context.Context) (syncer.Report, error) {
		<-ctx.Done()
		return syncer.Report{}, ctx.Err()
	}), time.Hour, 10*time.Millisecond)

	results, _, _ := startScheduler(t, s)

	o := await(t, results)
	assert.ErrorIs(t, o.err, context.DeadlineExceeded)
}

func TestScheduler_TicksOnInterval(t *testing.T) {
	s := syncer.NewScheduler(syncFunc(func(context.Context) (syncer.Report, error) {
		return syncer.Report{}, nil
	}), 10*time.Millisecond, time.Second)

	results, _, _ := startScheduler(t, s)

	for range 3 {
		await(t, results)
	}
}
