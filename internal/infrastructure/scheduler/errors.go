package scheduler

import "errors"

var (
	// ErrExecutorNotRunning is returned when submitting to a stopped executor
	ErrExecutorNotRunning = errors.New("executor is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")
)
