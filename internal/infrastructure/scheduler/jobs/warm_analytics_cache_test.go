package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
)

type fakeLeaderboard struct {
	limit int
	err   error
}

func (f *fakeLeaderboard) Handle(_ context.Context, limit int) ([]analytics.LeaderboardEntry, error) {
	f.limit = limit
	return nil, f.err
}

type fakeStats struct {
	calls atomic.Int32
	err   error
}

func (f *fakeStats) Handle(context.Context) (*analytics.GlobalStats, error) {
	f.calls.Add(1)
	return &analytics.GlobalStats{}, f.err
}

func TestWarmAnalyticsCacheJob_LoadsBothViews(t *testing.T) {
	lb, stats := &fakeLeaderboard{}, &fakeStats{}
	job := NewWarmAnalyticsCacheJob(lb, stats)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, analytics.MaxLeaderboardLimit, lb.limit)
	assert.EqualValues(t, 1, stats.calls.Load())
	assert.Equal(t, "warm_analytics_cache", job.Name())
}

func TestWarmAnalyticsCacheJob_PropagatesError(t *testing.T) {
	boom := errors.New("store down")
	job := NewWarmAnalyticsCacheJob(&fakeLeaderboard{}, &fakeStats{err: boom})

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
