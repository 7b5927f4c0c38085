package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job's latest run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a periodic task. Timeout bounds one run; zero means the interval.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	// RunOnStart runs the job once immediately instead of waiting one interval
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// JobState is a snapshot of a job's history
type JobState struct {
	Name        string        `json:"name"`
	Status      JobStatus     `json:"status"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
	LastError   string        `json:"last_error,omitempty"`
	LastStarted time.Time     `json:"last_started"`
	LastRunTime time.Duration `json:"last_run_time"`
}

type jobEntry struct {
	job     Job
	trigger chan struct{}
	running sync.Mutex

	mu    sync.Mutex
	state JobState
}

// Scheduler runs each job on its own ticker. A run never overlaps the
// previous run of the same job; a tick that finds it busy is skipped.
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*jobEntry
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// New creates an empty scheduler
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// Add registers a job. Jobs can only be added before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Interval <= 0 || job.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = job.Interval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidJob, job.Name)
	}
	s.jobs[job.Name] = &jobEntry{
		job:     job,
		trigger: make(chan struct{}, 1),
		state:   JobState{Name: job.Name, Status: JobStatusPending},
	}
	return nil
}

// Start launches one loop per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for their loops to exit, or for ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger asks the job to run now. It does not wait for the run.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	running := s.isRunning
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}
	select {
	case e.trigger <- struct{}{}:
		return nil
	default:
		return ErrJobBusy
	}
}

// States returns a snapshot of every job, sorted by name
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	states := make([]JobState, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		states[i] = e.state
		e.mu.Unlock()
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}

func (s *Scheduler) loop(ctx context.Context, e *jobEntry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()

	if e.job.RunOnStart {
		s.runOnce(ctx, e)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, e)
		case <-e.trigger:
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e *jobEntry) {
	if !e.running.TryLock() {
		s.logger.Debug("Job still running, skipping tick", zap.String("job", e.job.Name))
		return
	}
	defer e.running.Unlock()

	started := time.Now()
	e.mu.Lock()
	e.state.Status = JobStatusRunning
	e.state.LastStarted = started
	e.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, e.job.Timeout)
	defer cancel()
	runCtx, span := telemetry.StartServiceSpan(runCtx, "scheduler", e.job.Name)

	var err error
	telemetry.WithOperationLabel(runCtx, e.job.Name, func(c context.Context) {
		err = s.safeRun(c, e.job)
	})
	telemetry.EndSpan(span, err)

	e.mu.Lock()
	e.state.Runs++
	e.state.LastRunTime = time.Since(started)
	if err != nil {
		e.state.Status = JobStatusFailed
		e.state.Failures++
		e.state.LastError = err.Error()
	} else {
		e.state.Status = JobStatusSuccess
		e.state.LastError = ""
	}
	e.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed",
			zap.String("job", e.job.Name),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Job completed",
		zap.String("job", e.job.Name),
		zap.Duration("duration", time.Since(started)),
	)
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
