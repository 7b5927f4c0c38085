package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a job on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning is returned when adding a job after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrJobNotFound is returned for an unknown job name
	ErrJobNotFound = errors.New("job not found")

	// ErrJobBusy is returned when a manual trigger finds the job still running
	ErrJobBusy = errors.New("job is already running")

	// ErrInvalidJob is returned for a job without name, interval or function
	ErrInvalidJob = errors.New("invalid job definition")
)
