package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestScheduler_Add(t *testing.T) {
	noop := func(context.Context) error { return nil }
	tests := []struct {
		name string
		job  Job
	}{
		{"missing name", Job{Interval: time.Second, Run: noop}},
		{"missing interval", Job{Name: "x", Run: noop}},
		{"missing run", Job{Name: "x", Interval: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			assert.ErrorIs(t, s.Add(tt.job), ErrInvalidJob)
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		s := New(nil)
		require.NoError(t, s.Add(Job{Name: "x", Interval: time.Second, Run: noop}))
		assert.ErrorIs(t, s.Add(Job{Name: "x", Interval: time.Second, Run: noop}), ErrInvalidJob)
	})

	t.Run("after start", func(t *testing.T) {
		s := New(nil)
		require.NoError(t, s.Start(context.Background()))
		t.Cleanup(func() { _ = s.Stop(context.Background()) })
		assert.ErrorIs(t, s.Add(Job{Name: "x", Interval: time.Second, Run: noop}), ErrSchedulerRunning)
	})
}

func TestScheduler_RunsOnTickAndTrigger(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	var runs atomic.Int32
	require.NoError(t, s.Add(Job{
		Name:     "count",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, JobStatusSuccess, states[0].Status)
	assert.GreaterOrEqual(t, states[0].Runs, 2)

	assert.ErrorIs(t, s.Trigger("count"), ErrSchedulerNotRunning)
	assert.ErrorIs(t, s.Trigger("missing"), ErrJobNotFound)
}

func TestScheduler_ManualTrigger(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add(Job{
		Name:     "manual",
		Interval: time.Hour,
		Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.NoError(t, s.Trigger("manual"))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run after trigger")
	}
}

func TestScheduler_RecordsFailuresAndPanics(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	require.NoError(t, s.Add(Job{
		Name:       "fails",
		Interval:   time.Hour,
		RunOnStart: true,
		Run:        func(context.Context) error { return errors.New("collector unreachable") },
	}))
	require.NoError(t, s.Add(Job{
		Name:       "panics",
		Interval:   time.Hour,
		RunOnStart: true,
		Run:        func(context.Context) error { panic("boom") },
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool {
		for _, st := range s.States() {
			if st.Runs == 0 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	states := s.States()
	require.Len(t, states, 2)
	assert.Equal(t, "fails", states[0].Name)
	assert.Equal(t, JobStatusFailed, states[0].Status)
	assert.Equal(t, "collector unreachable", states[0].LastError)
	assert.Equal(t, 1, states[0].Failures)

	assert.Equal(t, "panics", states[1].Name)
	assert.Equal(t, JobStatusFailed, states[1].Status)
	assert.Contains(t, states[1].LastError, "panicked")
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	var cancelled atomic.Bool
	require.NoError(t, s.Add(Job{
		Name:       "slow",
		Interval:   time.Hour,
		Timeout:    20 * time.Millisecond,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, cancelled.Load, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Contains(t, s.States()[0].LastError, "deadline exceeded")
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

type stubSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *stubSweeper) Sweep(context.Context) (*appinventory.SweepResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &appinventory.SweepResult{}, nil
}

type stubAuditor struct {
	report *appinventory.AuditReport
}

func (a stubAuditor) Audit(context.Context) (*appinventory.AuditReport, error) {
	return a.report, nil
}

func TestAlertSweepJob(t *testing.T) {
	sweeper := &stubSweeper{}
	job := AlertSweepJob(sweeper, time.Minute)
	assert.Equal(t, JobAlertSweep, job.Name)
	assert.True(t, job.RunOnStart)
	require.NoError(t, job.Run(context.Background()))

	sweeper.err = errors.New("classification failed")
	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestLedgerAuditJob(t *testing.T) {
	healthy := LedgerAuditJob(stubAuditor{&appinventory.AuditReport{Healthy: 3}}, time.Hour)
	assert.NoError(t, healthy.Run(context.Background()))

	broken := LedgerAuditJob(stubAuditor{&appinventory.AuditReport{Healthy: 2, Unhealthy: 1}}, time.Hour)
	err := broken.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 unhealthy")
}
