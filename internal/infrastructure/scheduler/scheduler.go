// Package scheduler runs fire-and-forget work off the request path on a
// bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a submitted job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one unit of background work. Ctx carries request-derived values
// (logger, request ID, span) but must not be cancelled with the request.
type Job struct {
	ID     uuid.UUID
	Name   string
	Ctx    context.Context
	Run    func(ctx context.Context) error
	Fields []zap.Field

	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a pending job
func NewJob(ctx context.Context, name string, run func(ctx context.Context) error, fields ...zap.Field) *Job {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Job{
		ID:     uuid.New(),
		Name:   name,
		Ctx:    ctx,
		Run:    run,
		Fields: fields,
		Status: JobStatusPending,
	}
}

func (j *Job) start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

func (j *Job) finish(err error) {
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusSuccess
}

// Config holds executor configuration
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultConfig returns default executor configuration
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: time.Minute,
	}
}

// Executor runs submitted jobs on a fixed pool of workers
type Executor struct {
	config Config
	logger *zap.Logger

	jobs      chan *Job
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExecutor creates a new executor; non-positive settings fall back to defaults
func NewExecutor(cfg Config, logger *zap.Logger) *Executor {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	return &Executor{
		config: cfg,
		logger: logger,
	}
}

// Start launches the workers
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isRunning {
		return nil
	}

	e.jobs = make(chan *Job, e.config.QueueSize)
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))
	e.isRunning = true

	for i := 0; i < e.config.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	e.logger.Info("Background executor started",
		zap.Int("workers", e.config.Workers),
		zap.Int("queue_size", e.config.QueueSize),
		zap.Duration("job_timeout", e.config.JobTimeout),
	)
	return nil
}

// Stop stops accepting jobs and drains the queue. Jobs still running when
// ctx expires are cancelled.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return nil
	}
	e.isRunning = false
	close(e.jobs)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		e.logger.Info("Background executor stopped gracefully")
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		e.logger.Warn("Background executor stop timed out, in-flight jobs cancelled")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (e *Executor) Submit(job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isRunning {
		return ErrExecutorNotRunning
	}

	select {
	case e.jobs <- job:
		e.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// QueueLength returns the number of jobs waiting for a worker
func (e *Executor) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.jobs == nil {
		return 0
	}
	return len(e.jobs)
}

func (e *Executor) worker(workerID int) {
	defer e.wg.Done()
	for job := range e.jobs {
		e.process(job, workerID)
	}
}

func (e *Executor) process(job *Job, workerID int) {
	fields := append([]zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
	}, job.Fields...)

	ctx, cancel := context.WithTimeout(job.Ctx, e.config.JobTimeout)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	job.start()
	err := e.run(ctx, job)
	job.finish(err)

	if err != nil {
		e.logger.Error("Background job failed", append(fields, zap.Error(err))...)
		return
	}
	e.logger.Debug("Background job completed", fields...)
}

// run executes the job, converting a panic into an error so one bad job
// cannot take down a worker
func (e *Executor) run(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
