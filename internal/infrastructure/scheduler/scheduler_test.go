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
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunsJobOnInterval(t *testing.T) {
	var (
		mu      sync.Mutex
		results []JobResult
	)
	s := New(Config{
		TickInterval: 5 * time.Millisecond,
		OnResult: func(r JobResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, results)
	assert.Equal(t, "tick", results[0].JobName)
	assert.True(t, results[0].Success())
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := New(Config{})
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	require.NoError(t, s.Stop())
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := New(Config{})

	assert.ErrorIs(t, s.Register(nil, Every(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, nil), ErrInvalidSchedule)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, Every(0)), ErrInvalidSchedule)

	require.NoError(t, s.Register(&countingJob{name: "a"}, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, Every(time.Minute)), ErrJobAlreadyExists)
}

func TestScheduler_RunNowRecordsFailure(t *testing.T) {
	s := New(Config{})
	boom := errors.New("boom")
	require.NoError(t, s.Register(&countingJob{name: "bad", err: boom}, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.ErrorIs(t, res.Err, boom)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.EqualValues(t, 1, jobs[0].RunCount)
	assert.EqualValues(t, 1, jobs[0].FailCount)
	assert.Equal(t, "@every 1h0m0s", jobs[0].Schedule)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
