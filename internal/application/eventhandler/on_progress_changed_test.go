package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/messaging"
)

type deleteRecorder struct {
	deleted [][]string
	err     error
}

func (r *deleteRecorder) Get(context.Context, string, any) error { return port.ErrCacheMiss }
func (r *deleteRecorder) Set(context.Context, string, any, time.Duration) error {
	return nil
}
func (r *deleteRecorder) Delete(_ context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys)
	return r.err
}

var at = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestOnProgressChanged_InvalidatesThroughBus(t *testing.T) {
	cache := &deleteRecorder{}
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryConfig{Async: false})
	defer bus.Close()

	h := NewOnProgressChangedHandler(cache, nil)
	require.NoError(t, h.Register(bus))

	require.NoError(t, bus.Publish(shared.NewAttemptSubmittedEvent(1, 2, true, 35, 20, at)))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(1, 35, 35, at)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(1, 1, 2, at)))

	assert.Equal(t, [][]string{
		{port.CacheKeyLeaderboard, port.CacheKeyGlobalStats},
		{port.CacheKeyLeaderboard},
	}, cache.deleted)
}

func TestOnProgressChanged_Errors(t *testing.T) {
	boom := errors.New("redis down")
	h := NewOnProgressChangedHandler(&deleteRecorder{err: boom}, nil)
	assert.ErrorIs(t, h.Handle(shared.NewXPGainedEvent(1, 5, 5, at)), boom)

	assert.NoError(t, NewOnProgressChangedHandler(nil, nil).Handle(shared.NewXPGainedEvent(1, 5, 5, at)))
}
