package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ctxKey struct{}

func TestExecutor_RunsSubmittedJobs(t *testing.T) {
	exec := NewExecutor(Config{Workers: 2, QueueSize: 10, JobTimeout: time.Second}, zap.NewNop())
	require.NoError(t, exec.Start(context.Background()))

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		job := NewJob(context.Background(), "count", func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
		require.NoError(t, exec.Submit(job))
	}
	wg.Wait()

	require.NoError(t, exec.Stop(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestExecutor_JobContext(t *testing.T) {
	exec := NewExecutor(Config{Workers: 1, QueueSize: 1, JobTimeout: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, exec.Start(context.Background()))
	defer exec.Stop(context.Background())

	reqCtx, cancelReq := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))

	type result struct {
		value    any
		deadline bool
	}
	got := make(chan result, 1)
	job := NewJob(context.WithoutCancel(reqCtx), "ctx", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		got <- result{value: ctx.Value(ctxKey{}), deadline: hasDeadline}
		return nil
	})
	cancelReq()
	require.NoError(t, exec.Submit(job))

	r := <-got
	assert.Equal(t, "req-1", r.value)
	assert.True(t, r.deadline, "job timeout applies")
}

func TestExecutor_Submit(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		exec := NewExecutor(DefaultConfig(), zap.NewNop())
		err := exec.Submit(NewJob(context.Background(), "noop", func(context.Context) error { return nil }))
		assert.ErrorIs(t, err, ErrExecutorNotRunning)
	})

	t.Run("queue full", func(t *testing.T) {
		exec := NewExecutor(Config{Workers: 1, QueueSize: 1, JobTimeout: time.Second}, zap.NewNop())
		require.NoError(t, exec.Start(context.Background()))

		release := make(chan struct{})
		started := make(chan struct{})
		blocker := NewJob(context.Background(), "block", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
		require.NoError(t, exec.Submit(blocker))
		<-started

		noop := func(context.Context) error { return nil }
		require.NoError(t, exec.Submit(NewJob(context.Background(), "queued", noop)))
		assert.ErrorIs(t, exec.Submit(NewJob(context.Background(), "overflow", noop)), ErrJobQueueFull)

		close(release)
		require.NoError(t, exec.Stop(context.Background()))
	})
}

func TestExecutor_FailuresAndPanicsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	exec := NewExecutor(Config{Workers: 1, QueueSize: 4, JobTimeout: time.Second}, zap.New(core))
	require.NoError(t, exec.Start(context.Background()))

	failing := NewJob(context.Background(), "fail", func(context.Context) error {
		return errors.New("remote unavailable")
	}, zap.String("user_id", "u-1"))
	panicking := NewJob(context.Background(), "panic", func(context.Context) error {
		panic("boom")
	})
	require.NoError(t, exec.Submit(failing))
	require.NoError(t, exec.Submit(panicking))
	require.NoError(t, exec.Stop(context.Background()))

	assert.Equal(t, 2, logs.FilterMessage("Background job failed").Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("user_id", "u-1")).Len())
	assert.Equal(t, JobStatusFailed, failing.Status)
	assert.Equal(t, "remote unavailable", failing.Error)
	assert.Equal(t, JobStatusFailed, panicking.Status)
	assert.Contains(t, panicking.Error, "boom")
}

func TestExecutor_StopTimeoutCancelsInFlight(t *testing.T) {
	exec := NewExecutor(Config{Workers: 1, QueueSize: 1, JobTimeout: time.Minute}, zap.NewNop())
	require.NoError(t, exec.Start(context.Background()))

	started := make(chan struct{})
	job := NewJob(context.Background(), "slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, exec.Submit(job))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, exec.Stop(ctx), context.DeadlineExceeded)
	assert.Equal(t, JobStatusFailed, job.Status)

	// Second stop is a no-op
	assert.NoError(t, exec.Stop(context.Background()))
}
